package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// PDFExporter renders the audit trail as a PDF report for trainers who
// want a handout of what happened during an exercise.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportAuditTrail generates a PDF from audit entries, newest first.
func (e *PDFExporter) ExportAuditTrail(logs []domain.AuditLog) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, len(logs))
	e.addActionSummary(pdf, logs)
	e.addEntries(pdf, logs)
	e.addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, count int) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "Session Audit Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Entries: %d", count), "", 1, "L", false, 0, "")

	pdf.Ln(6)
}

// addActionSummary prints per-action counts so a reviewer can spot
// unusual activity (token failures, health probe storms) at a glance.
func (e *PDFExporter) addActionSummary(pdf *gofpdf.Fpdf, logs []domain.AuditLog) {
	if len(logs) == 0 {
		return
	}

	counts := make(map[domain.AuditAction]int)
	var order []domain.AuditAction
	for _, l := range logs {
		if counts[l.Action] == 0 {
			order = append(order, l.Action)
		}
		counts[l.Action]++
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 8, "Activity Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, action := range order {
		line := fmt.Sprintf("%s: %d", action, counts[action])
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
}

func (e *PDFExporter) addEntries(pdf *gofpdf.Fpdf, logs []domain.AuditLog) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 8, "Audit Trail", "", 1, "L", false, 0, "")

	e.addTableHeader(pdf)

	fill := false
	for _, l := range logs {
		// Leave room for the row plus the footer margin.
		if pdf.GetY() > 265 {
			pdf.AddPage()
			e.addTableHeader(pdf)
		}

		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(40, 40, 40)
		pdf.SetFillColor(245, 245, 245)

		pdf.CellFormat(32, 7, l.Timestamp.Format("01-02 15:04:05"), "", 0, "L", fill, 0, "")
		pdf.CellFormat(28, 7, truncate(l.Actor, 18), "", 0, "L", fill, 0, "")
		pdf.CellFormat(40, 7, string(l.Action), "", 0, "L", fill, 0, "")
		pdf.CellFormat(28, 7, truncate(l.Target, 18), "", 0, "L", fill, 0, "")
		pdf.CellFormat(62, 7, truncate(l.Details, 48), "", 1, "L", fill, 0, "")

		fill = !fill
	}
}

func (e *PDFExporter) addTableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFillColor(0, 51, 102)

	pdf.CellFormat(32, 8, "Time", "", 0, "L", true, 0, "")
	pdf.CellFormat(28, 8, "Actor", "", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Action", "", 0, "L", true, 0, "")
	pdf.CellFormat(28, 8, "Target", "", 0, "L", true, 0, "")
	pdf.CellFormat(62, 8, "Details", "", 1, "L", true, 0, "")
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf) {
	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 6, "rangectl - cyber range session audit", "", 1, "C", false, 0, "")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
