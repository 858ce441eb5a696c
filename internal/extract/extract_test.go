package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPDF programmatically generates a small PDF containing the given
// text. Generating ensures the file is well-formed and parsable by
// ledongthuc/pdf, avoiding brittle handcrafted bytes.
func newTestPDF(t *testing.T, text string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.Cell(40, 10, text)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf), "failed to generate test PDF")
	return buf.Bytes()
}

func TestTextPDF(t *testing.T) {
	data := newTestPDF(t, "Golang engineer with PostgreSQL experience")

	text, err := Text(MimePDF, data)
	require.NoError(t, err)
	assert.Contains(t, text, "Golang engineer")
}

// newTestDocx builds a minimal but valid .docx archive (a zip with the OOXML
// document part and its relationships) containing the given paragraph text.
func newTestDocx(t *testing.T, text string) []byte {
	t.Helper()

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body>
</w:document>`, text)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": document,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestTextDocx(t *testing.T) {
	data := newTestDocx(t, "Golang engineer with RabbitMQ experience")

	text, err := Text(MimeDocx, data)
	require.NoError(t, err)
	assert.Contains(t, text, "Golang engineer with RabbitMQ experience")
}

func TestTextCorruptDocx(t *testing.T) {
	_, err := Text(MimeDocx, []byte("not a zip archive"))
	assert.ErrorContains(t, err, "failed to parse docx")
}

func TestTextPlain(t *testing.T) {
	text, err := Text(MimePlain, []byte("plain resume text"))
	require.NoError(t, err)
	assert.Equal(t, "plain resume text", text)
}

func TestTextUnsupportedMime(t *testing.T) {
	_, err := Text("image/png", []byte("not a resume"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestTextCorruptPDF(t *testing.T) {
	_, err := Text(MimePDF, []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestTextEmptyResult(t *testing.T) {
	_, err := Text(MimePlain, []byte("   \n\t"))
	assert.ErrorContains(t, err, "no extractable text")
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(MimePDF))
	assert.True(t, Supported(MimeDocx))
	assert.True(t, Supported(MimePlain))
	assert.False(t, Supported("application/zip"))
	assert.False(t, Supported(""))
}
