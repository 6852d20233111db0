package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/report"
	"boarding-house-backend/internal/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func decimalQuery(c *gin.Context, key, code string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Invalid(code, "%s %q is not a number", key, raw)
	}
	return &d, nil
}

// previewCacheKey canonicalizes the preview inputs so that equal amounts
// written differently ("2900000.00", "2900000") share a cache entry.
// Malformed input bypasses the cache.
func previewCacheKey(c *gin.Context) (string, bool) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(c.Query("date")))
	if err != nil {
		return "", false
	}
	var b strings.Builder
	b.WriteString("proration|")
	b.WriteString(date.Format(time.DateOnly))
	for _, name := range []string{"amount", "deposit", "new_amount"} {
		b.WriteString("|" + name + "=")
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return "", false
		}
		b.WriteString(d.String())
	}
	return b.String(), true
}

// Preview handles GET /api/billing/proration. It needs amount and date;
// deposit adds a move-out refund and new_amount a transfer adjustment.
func (h *Handler) Preview(c *gin.Context) {
	amount, err := decimalQuery(c, "amount", apperr.InvalidRent)
	if err != nil {
		h.fail(c, err)
		return
	}
	if amount == nil {
		h.fail(c, apperr.Invalid(apperr.InvalidRent, "amount is required"))
		return
	}
	date, err := parseDate(c.Query("date"), "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	req := lifecycle.PreviewRequest{MonthlyAmount: *amount, Date: date}
	if req.Deposit, err = decimalQuery(c, "deposit", apperr.InvalidDeposit); err != nil {
		h.fail(c, err)
		return
	}
	if req.NewAmount, err = decimalQuery(c, "new_amount", apperr.InvalidRent); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.svc.Preview(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// MonthInvoices handles GET /api/admin/invoices?month=YYYY-MM.
func (h *Handler) MonthInvoices(c *gin.Context) {
	invs, err := h.svc.MonthInvoices(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newInvoiceViews(invs))
}

// ExportInvoices handles GET /api/admin/invoices/export?month=YYYY-MM.
func (h *Handler) ExportInvoices(c *gin.Context) {
	ctx := c.Request.Context()
	month := c.Query("month")
	invs, err := h.svc.MonthInvoices(ctx, month)
	if err != nil {
		h.fail(c, err)
		return
	}

	numbers := make(map[int64]string)
	for _, inv := range invs {
		if _, seen := numbers[inv.RoomID]; seen {
			continue
		}
		room, err := h.svc.GetRoom(ctx, inv.RoomID)
		if err != nil {
			h.fail(c, err)
			return
		}
		numbers[inv.RoomID] = room.RoomNumber
	}

	data, err := report.InvoiceSheet(month, invs, numbers)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoices-%s.xlsx"`, month))
	c.Data(http.StatusOK, xlsxContentType, data)
}
