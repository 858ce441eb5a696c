// Package report renders analysis results into a downloadable PDF.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// ResumeSection is the per-resume block of the report.
type ResumeSection struct {
	Filename       string
	Score          int
	Coverage       float64
	Matched        []string
	Missing        []string
	Summary        string
	Recommendation string
	// Err marks a resume that could not be analyzed.
	Err string
}

// Data is everything the report layout needs.
type Data struct {
	SessionName string
	JobTitle    string
	GeneratedAt time.Time
	Resumes     []ResumeSection
}

const (
	marginMM    = 15.0
	lineHeight  = 6.0
	labelWidth  = 42.0
	contentSize = 10.0
)

// Build renders the report and returns the PDF bytes.
func Build(data Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*marginMM

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(usable, 10, "Resume Analysis Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", contentSize)
	pdf.CellFormat(usable, lineHeight, fmt.Sprintf("Job: %s", data.JobTitle), "", 1, "C", false, 0, "")
	if data.SessionName != "" {
		pdf.CellFormat(usable, lineHeight, fmt.Sprintf("Session: %s", data.SessionName), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(usable, lineHeight, data.GeneratedAt.Format("Jan 2, 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for i, r := range data.Resumes {
		if i > 0 {
			pdf.Ln(4)
		}
		writeResume(pdf, usable, r)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeResume(pdf *fpdf.Fpdf, usable float64, r ResumeSection) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(240, 240, 245)
	pdf.CellFormat(usable, 8, r.Filename, "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", contentSize)
	if r.Err != "" {
		pdf.MultiCell(usable, lineHeight, "Could not analyze: "+r.Err, "", "L", false)
		return
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(usable, 8, fmt.Sprintf("Score: %d / 100", r.Score), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", contentSize)
	labeled(pdf, usable, "Keyword coverage", fmt.Sprintf("%.0f%%", r.Coverage*100))
	labeled(pdf, usable, "Matched keywords", joinOrDash(r.Matched))
	labeled(pdf, usable, "Missing keywords", joinOrDash(r.Missing))
	if r.Summary != "" {
		labeled(pdf, usable, "Summary", r.Summary)
	}
	if r.Recommendation != "" {
		labeled(pdf, usable, "Recommendation", r.Recommendation)
	}
}

func labeled(pdf *fpdf.Fpdf, usable float64, label, value string) {
	pdf.SetFont("Helvetica", "B", contentSize)
	pdf.CellFormat(labelWidth, lineHeight, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", contentSize)
	pdf.MultiCell(usable-labelWidth, lineHeight, value, "", "L", false)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
