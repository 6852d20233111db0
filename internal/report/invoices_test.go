package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"boarding-house-backend/internal/model"
)

func TestInvoiceSheet(t *testing.T) {
	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	issued := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	invoices := []model.Invoice{
		{
			TenantRef: "t-1", RoomID: 1, PaymentMonth: "2026-03", Kind: model.InvoiceMonthly,
			Amount: decimal.NewFromInt(3100000), FullAmount: decimal.NewFromInt(3100000),
			BilledDays: 31, DaysInMonth: 31, Status: "pending", CreatedAt: issued,
		},
		{
			TenantRef: "t-2", RoomID: 9, PaymentMonth: "2026-03", Kind: model.InvoiceProrated,
			Amount: decimal.NewFromInt(2200000), FullAmount: decimal.NewFromInt(3100000),
			ProratedFrom: &from, BilledDays: 22, DaysInMonth: 31, Status: "pending", CreatedAt: issued,
		},
	}

	data, err := InvoiceSheet("2026-03", invoices, map[int64]string{1: "A-101"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := "Invoices 2026-03"
	assert.Equal(t, []string{sheet}, f.GetSheetList())

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, InvoiceHeader, rows[0])
	assert.Equal(t, []string{"t-1", "A-101", "monthly", "31", "31", "3100000", "3100000", "", "pending", "2026-03-10 09:30:00"}, rows[1])
	assert.Equal(t, "#9", rows[2][1])
	assert.Equal(t, "2026-03-10", rows[2][7])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "5300000", rows[3][6])
}

func TestInvoiceSheet_Empty(t *testing.T) {
	data, err := InvoiceSheet("2026-04", nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Invoices 2026-04", "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0", total)
}
