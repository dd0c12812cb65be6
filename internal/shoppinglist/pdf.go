package shoppinglist

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderEnquiryPDF renders the enquiry as an A4 document.
func RenderEnquiryPDF(enq Enquiry) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(enq.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr(enq.Title))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(10, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, tr("Producto"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, tr("Cantidad"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, tr("Forma de pago"), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, l := range enq.Lines {
		title := l.Title
		if l.Brand != "" {
			title += " (" + l.Brand + ")"
		}
		payment := l.Payment
		if payment == "" {
			payment = "A convenir"
		}
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", l.Number), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, tr(truncate(title, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, tr(truncate(payment, 48)), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
		if l.Address != "" {
			pdf.CellFormat(190, 6, tr("Entrega: "+l.Address), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	for i, s := range enq.Shipping {
		if i > 0 {
			s = "   " + s
		}
		pdf.Cell(0, 6, tr(s))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render enquiry pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
