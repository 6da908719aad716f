package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a configuration directory under $HOME.
	model.ConfigPath = "disable"
}

const chartImage = "chart"

// PDF renders doc as an A4 document and validates the result.
func PDF(doc *Document) ([]byte, error) {
	data, err := renderPDF(doc, true)
	if err != nil {
		return nil, err
	}
	if _, err := PageCount(data); err != nil {
		return nil, fmt.Errorf("generated PDF failed validation: %w", err)
	}
	return data, nil
}

// PageCount validates data as a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}

func renderPDF(doc *Document, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(doc.Title, false)
	pdf.SetCreator("bptracker", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.RegisterImageOptionsReader(chartImage, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(doc.Chart))
	pdf.ImageOptions(chartImage, 15, pdf.GetY(), 180, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(4)

	section(pdf, "Daily averages")
	dailyCols := []float64{50, 30, 35, 35, 30}
	tableHeader(pdf, dailyCols, "Date", "Readings", "Systolic", "Diastolic", "Pulse")
	for _, b := range doc.Daily {
		tableRow(pdf, dailyCols, b.Label, strconv.Itoa(b.Count), Mean(b.Systolic), Mean(b.Diastolic), Mean(b.Pulse))
	}
	pdf.Ln(4)

	section(pdf, "Readings")
	rowCols := []float64{60, 35, 35, 30}
	tableHeader(pdf, rowCols, "Timestamp", "Systolic", "Diastolic", "Pulse")
	for _, r := range doc.Rows {
		tableRow(pdf, rowCols, r.Timestamp, strconv.Itoa(r.Systolic), strconv.Itoa(r.Diastolic), strconv.Itoa(r.Pulse))
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func tableHeader(pdf *fpdf.Fpdf, widths []float64, cols ...string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
}

func tableRow(pdf *fpdf.Fpdf, widths []float64, cols ...string) {
	for i, c := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}
