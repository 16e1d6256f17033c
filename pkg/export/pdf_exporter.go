package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Dataset defines tabular export content. Sections allow one document to carry
// several titled tables (e.g. anomalies followed by technician rankings).
type Dataset struct {
	Title    string
	Sections []Section
}

// Section is a single titled table inside a Dataset.
type Section struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// PDFExporter renders datasets into a tabular PDF document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title page header and one table per section.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	for _, section := range data.Sections {
		if len(section.Headers) == 0 {
			return nil, fmt.Errorf("section %q requires at least one header", section.Title)
		}
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, section.Title, "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}

		pdf.SetFont("Arial", "B", 10)
		colWidth := 190.0 / float64(len(section.Headers))
		for _, header := range section.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Rows {
			for _, header := range section.Headers {
				pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(6)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
