package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pdfText parses generated report bytes back into plain text so tests can
// assert on content rather than raw PDF structure.
func pdfText(t *testing.T, data []byte) string {
	t.Helper()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err, "report is not a parsable PDF")

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		require.NoError(t, err)
		sb.WriteString(text)
	}
	return sb.String()
}

func testData() Data {
	return Data{
		SessionName: "batch-1",
		JobTitle:    "Backend Engineer",
		GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Resumes: []ResumeSection{
			{
				Filename:       "jane.pdf",
				Score:          82,
				Coverage:       0.8,
				Matched:        []string{"golang", "postgresql"},
				Missing:        []string{"kubernetes"},
				Summary:        "Strong backend profile.",
				Recommendation: "Interview.",
			},
			{
				Filename: "broken.pdf",
				Err:      "text extraction error: no extractable text",
			},
		},
	}
}

func TestBuild(t *testing.T) {
	data := testData()
	out, err := Build(data)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	text := pdfText(t, out)
	assert.Contains(t, text, "Resume Analysis Report")
	assert.Contains(t, text, "Backend Engineer")
	assert.Contains(t, text, "jane.pdf")
	assert.Contains(t, text, "Score: 82 / 100")
	assert.Contains(t, text, "golang, postgresql")
	assert.Contains(t, text, "kubernetes")
	assert.Contains(t, text, "Interview.")
}

func TestBuildErrorEntry(t *testing.T) {
	out, err := Build(testData())
	require.NoError(t, err)

	text := pdfText(t, out)
	assert.Contains(t, text, "broken.pdf")
	assert.Contains(t, text, "Could not analyze")
}

func TestBuildNoResumes(t *testing.T) {
	out, err := Build(Data{JobTitle: "Any role", GeneratedAt: time.Now()})
	require.NoError(t, err)
	assert.Contains(t, pdfText(t, out), "Resume Analysis Report")
}

func TestBuildManyResumesPaginates(t *testing.T) {
	data := Data{JobTitle: "Backend Engineer", GeneratedAt: time.Now()}
	for i := 0; i < 40; i++ {
		data.Resumes = append(data.Resumes, ResumeSection{
			Filename: "candidate.pdf",
			Score:    50,
			Matched:  []string{"golang"},
			Missing:  []string{"kubernetes", "docker", "terraform"},
		})
	}
	out, err := Build(data)
	require.NoError(t, err)

	reader, err := pdf.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	assert.Greater(t, reader.NumPage(), 1)
}
