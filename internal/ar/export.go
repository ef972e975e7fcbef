package ar

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Invoices"

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []any{
	"Invoice Number", "Sales Order", "Customer", "Invoice Date", "Due Date",
	"Grand Total", "Amount Paid", "Balance Due", "Payment Status", "Payment Method",
}

// WriteXLSX renders invoices as a single sheet workbook.
func WriteXLSX(w io.Writer, invoices []Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	for i, inv := range invoices {
		method := ""
		if inv.PaymentMethod != nil {
			method = string(*inv.PaymentMethod)
		}
		row := []any{
			inv.InvoiceNumber,
			inv.OrderNumber,
			inv.CustomerName,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			inv.GrandTotal.InexactFloat64(),
			inv.AmountPaid.InexactFloat64(),
			inv.BalanceDue.InexactFloat64(),
			string(inv.PaymentStatus),
			method,
		}
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
