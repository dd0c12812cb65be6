package shoppinglist

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RenderEnquiryXLSX renders the enquiry as a workbook with an items sheet and
// a delivery sheet.
func RenderEnquiryXLSX(enq Enquiry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	itemsSheet := "pedido"
	deliverySheet := "entrega"
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, fmt.Errorf("render enquiry xlsx: %w", err)
	}
	if _, err := f.NewSheet(deliverySheet); err != nil {
		return nil, fmt.Errorf("render enquiry xlsx: %w", err)
	}

	_ = f.SetCellValue(itemsSheet, "A1", enq.Title)
	headers := []string{"#", "Producto", "Marca", "Categoría", "Cantidad", "Forma de pago", "Entrega"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	for i, l := range enq.Lines {
		row := i + 4
		payment := l.Payment
		if payment == "" {
			payment = "A convenir"
		}
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), l.Number)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), l.Title)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), l.Brand)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), l.Category)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), l.Quantity)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", row), payment)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("G%d", row), l.Address)
	}
	_ = f.SetColWidth(itemsSheet, "B", "B", 40)
	_ = f.SetColWidth(itemsSheet, "F", "G", 45)

	for i, s := range enq.Shipping {
		_ = f.SetCellValue(deliverySheet, fmt.Sprintf("A%d", i+1), s)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render enquiry xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
