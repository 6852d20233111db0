// Package report renders invoice listings as spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"boarding-house-backend/internal/model"
)

// InvoiceHeader is the column order of the invoice export.
var InvoiceHeader = []string{
	"Tenant",
	"Room",
	"Kind",
	"Billed Days",
	"Days In Month",
	"Monthly Rent",
	"Amount",
	"Prorated From",
	"Status",
	"Issued At",
}

var invoiceColumnWidths = []float64{24, 12, 10, 12, 14, 16, 16, 14, 10, 20}

// InvoiceSheet renders the invoices of one payment month, followed by a
// total row. roomNumbers maps room ids to their display numbers; unknown
// rooms are shown by id.
func InvoiceSheet(month string, invoices []model.Invoice, roomNumbers map[int64]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Invoices " + month
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	for col, header := range InvoiceHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, invoiceColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	total := decimal.Zero
	for i, inv := range invoices {
		row := i + 2 // row 1 is the header
		room, ok := roomNumbers[inv.RoomID]
		if !ok {
			room = fmt.Sprintf("#%d", inv.RoomID)
		}
		prorated := ""
		if inv.ProratedFrom != nil {
			prorated = inv.ProratedFrom.Format(time.DateOnly)
		}
		values := []any{
			inv.TenantRef,
			room,
			string(inv.Kind),
			inv.BilledDays,
			inv.DaysInMonth,
			inv.FullAmount.InexactFloat64(),
			inv.Amount.InexactFloat64(),
			prorated,
			inv.Status,
			inv.CreatedAt.UTC().Format(time.DateTime),
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), moneyStyle); err != nil {
			return nil, fmt.Errorf("failed to style row %d: %w", row, err)
		}
		total = total.Add(inv.Amount)
	}

	totalRow := len(invoices) + 2
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("G%d", totalRow), total.InexactFloat64()); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("G%d", totalRow), fmt.Sprintf("G%d", totalRow), moneyStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
