package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10.0
	pdfTopMargin  = 15.0
	pdfPageWidth  = 297.0
	pdfPageHeight = 210.0
	pdfUsable     = pdfPageWidth - 2*pdfMargin
	pdfCellMargin = 1.0
	pdfLineHeight = 4.5
	pdfFontSize   = 9.0
)

// PDFExporter renders datasets into a landscape table whose cells wrap
// instead of spilling into their neighbours.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body. The
// header row is repeated on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := newPDFDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(data, pdfUsable)
	header := func() {
		pdf.SetFont("Arial", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		drawRow(pdf, widths, wrapCells(pdf, widths, data.Headers), true)
		pdf.SetFont("Arial", "", pdfFontSize)
	}
	header()

	bottom := pdfPageHeight - pdfTopMargin
	for _, row := range data.Rows {
		values := data.values(row)
		for i := range values {
			values[i] = tr(values[i])
		}
		cells := wrapCells(pdf, widths, values)
		if pdf.GetY()+rowHeight(cells) > bottom {
			pdf.AddPage()
			header()
		}
		drawRow(pdf, widths, cells, false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func newPDFDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfTopMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfTopMargin)
	pdf.SetCellMargin(pdfCellMargin)
	pdf.SetFont("Arial", "", pdfFontSize)
	return pdf
}

// columnWidths shares total between the headers by their weights.
func columnWidths(data Dataset, total float64) []float64 {
	weights := make([]float64, len(data.Headers))
	sum := 0.0
	for i, h := range data.Headers {
		w := data.Widths[h]
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = total * w / sum
	}
	return widths
}

// wrapCells splits every value into lines that fit its column with the
// current font. Empty values keep one blank line.
func wrapCells(pdf *gofpdf.Fpdf, widths []float64, values []string) [][]string {
	cells := make([][]string, len(values))
	for i, v := range values {
		lines := pdf.SplitLines([]byte(v), widths[i])
		if len(lines) == 0 {
			cells[i] = []string{""}
			continue
		}
		cells[i] = make([]string, len(lines))
		for j, line := range lines {
			cells[i][j] = string(line)
		}
	}
	return cells
}

func rowHeight(cells [][]string) float64 {
	lines := 1
	for _, c := range cells {
		if len(c) > lines {
			lines = len(c)
		}
	}
	return float64(lines)*pdfLineHeight + 1
}

func drawRow(pdf *gofpdf.Fpdf, widths []float64, cells [][]string, fill bool) {
	height := rowHeight(cells)
	x, y := pdf.GetXY()
	style := "D"
	if fill {
		style = "FD"
	}
	for i, lines := range cells {
		pdf.Rect(x, y, widths[i], height, style)
		for j, line := range lines {
			pdf.SetXY(x, y+0.5+float64(j)*pdfLineHeight)
			pdf.CellFormat(widths[i], pdfLineHeight, line, "", 0, "L", false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(pdfMargin, y+height)
}
