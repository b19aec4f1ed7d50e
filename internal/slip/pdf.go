package slip

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 10.0
	lineHeight = 7.0

	colProduct  = 95.0
	colQuantity = 20.0
	colPrice    = 37.5
	colSubtotal = 37.5
)

// PDFRenderer draws the slip directly with fpdf. It needs no external binary.
type PDFRenderer struct {
	compress bool
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{compress: true}
}

func (r *PDFRenderer) Name() string { return "fpdf" }

func (r *PDFRenderer) Render(ctx context.Context, s *Slip) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(fmt.Sprintf("Order slip %s", s.OrderID), true)
	pdf.SetCreator(StoreName, true)
	pdf.SetCreationDate(s.PrintedAt)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(136, 136, 136)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Thank you for shopping with %s. Keep this slip for your records.", StoreName)),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	drawHeader(pdf, s, tr)
	drawCustomer(pdf, s, tr)
	drawItems(pdf, s, tr)

	if s.Customer.Note != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(15, lineHeight, "Note:", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(s.Customer.Note), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("fpdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *fpdf.Fpdf, s *Slip, tr func(string) string) {
	pdf.SetFillColor(247, 214, 224)
	pdf.Rect(0, 0, 210, 38, "F")

	pdf.SetXY(pageMargin, 10)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(176, 58, 91)
	pdf.CellFormat(90, 12, StoreName, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(51, 51, 51)
	meta := []string{
		"Order " + s.OrderID.String(),
		"Placed: " + formatTime(s.PlacedAt),
		"Printed: " + formatTime(s.PrintedAt),
		"Status: " + s.StatusLabel(),
	}
	for i, line := range meta {
		pdf.SetXY(100, 8+float64(i)*5.5)
		pdf.CellFormat(100, 5.5, tr(line), "", 0, "R", false, 0, "")
	}

	pdf.SetY(44)
}

func drawCustomer(pdf *fpdf.Fpdf, s *Slip, tr func(string) string) {
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(176, 58, 91)
	pdf.CellFormat(0, lineHeight, "Customer", "LTR", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 6, tr(s.Customer.Name), "LR", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(s.Customer.Phone), "LR", 1, "L", false, 0, "")
	pdf.MultiCell(0, 6, tr(s.Customer.Address), "LBR", "L", false)
	pdf.Ln(6)
}

func drawItems(pdf *fpdf.Fpdf, s *Slip, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(176, 58, 91)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(colProduct, lineHeight+1, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQuantity, lineHeight+1, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colPrice, lineHeight+1, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colSubtotal, lineHeight+1, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFillColor(252, 244, 247)
	for i, line := range s.Lines {
		fill := i%2 == 1
		pdf.CellFormat(colProduct, lineHeight, tr(line.ProductName), "LR", 0, "L", fill, 0, "")
		pdf.CellFormat(colQuantity, lineHeight, strconv.Itoa(line.Quantity), "LR", 0, "R", fill, 0, "")
		pdf.CellFormat(colPrice, lineHeight, FormatMoney(line.UnitPrice), "LR", 0, "R", fill, 0, "")
		pdf.CellFormat(colSubtotal, lineHeight, FormatMoney(line.Subtotal), "LR", 1, "R", fill, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colProduct, lineHeight+1, fmt.Sprintf("Total (%d items)", s.TotalItems), "1", 0, "L", false, 0, "")
	pdf.CellFormat(colQuantity+colPrice, lineHeight+1, "", "1", 0, "R", false, 0, "")
	pdf.CellFormat(colSubtotal, lineHeight+1, FormatMoney(s.Total), "1", 1, "R", false, 0, "")
}
