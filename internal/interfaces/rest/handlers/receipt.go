package handlers

import (
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

func renderReceiptPDF(w io.Writer, receipt rest.ReceiptView, currency string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Transaction ID", receipt.TransactionID},
		{"Order ID", receipt.OrderID},
		{"Amount", currency + " " + receipt.Amount.String()},
		{"Payment Method", receipt.PaymentMethod},
		{"Status", receipt.Status},
		{"Date", receipt.Date},
	}
	if receipt.Description != "" {
		rows = append(rows, [2]string{"Description", receipt.Description})
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(50, 9, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 9, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 8, "This is a computer generated receipt.", "", 1, "C", false, 0, "")

	return pdf.Output(w)
}
