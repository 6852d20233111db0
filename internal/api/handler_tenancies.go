package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/response"
)

// GetTenancy handles GET /api/tenancies/:id.
func (h *Handler) GetTenancy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetTenancy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newTenancyView(t))
}

type transferRequest struct {
	TargetRoomID  int64            `json:"target_room_id" binding:"required"`
	EffectiveDate string           `json:"effective_date"`
	MonthlyRent   *decimal.Decimal `json:"monthly_rent"`
}

// TransferRoom handles POST /api/tenancies/:id/transfer.
func (h *Handler) TransferRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	effective, err := parseDate(req.EffectiveDate, "effective_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.TransferRoom(c.Request.Context(), lifecycle.TransferRoomRequest{
		TenancyID:     id,
		TargetRoomID:  req.TargetRoomID,
		Actor:         actor(c),
		EffectiveDate: effective,
		MonthlyRent:   req.MonthlyRent,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	now := h.svc.Now()
	response.Success(c, http.StatusOK, gin.H{
		"tenancy":    newTenancyView(res.Tenancy),
		"from_room":  newRoomView(res.FromRoom, now),
		"to_room":    newRoomView(res.ToRoom, now),
		"adjustment": res.Adjustment,
	})
}

type moveOutRequest struct {
	MoveOutDate string           `json:"move_out_date"`
	Reason      string           `json:"reason"`
	Deposit     *decimal.Decimal `json:"deposit"`
}

// MoveOut handles POST /api/tenancies/:id/move-out.
func (h *Handler) MoveOut(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req moveOutRequest
	if !bindOptional(c, &req) {
		return
	}
	date, err := parseDate(req.MoveOutDate, "move_out_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.MoveOut(c.Request.Context(), lifecycle.MoveOutRequest{
		TenancyID:   id,
		Actor:       actor(c),
		MoveOutDate: date,
		Reason:      req.Reason,
		Deposit:     req.Deposit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"tenancy": newTenancyView(res.Tenancy),
		"room":    newRoomView(res.Room, h.svc.Now()),
		"refund":  res.Refund,
	})
}

type tenancyChangeRequest struct {
	Reason string `json:"reason"`
}

// SuspendTenancy handles POST /api/tenancies/:id/suspend.
func (h *Handler) SuspendTenancy(c *gin.Context) {
	h.changeTenancy(c, h.svc.SuspendTenancy)
}

// ReactivateTenancy handles POST /api/tenancies/:id/reactivate.
func (h *Handler) ReactivateTenancy(c *gin.Context) {
	h.changeTenancy(c, h.svc.ReactivateTenancy)
}

func (h *Handler) changeTenancy(c *gin.Context, op func(context.Context, lifecycle.TenancyChangeRequest) (*lifecycle.TenancyResult, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req tenancyChangeRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := op(c.Request.Context(), lifecycle.TenancyChangeRequest{TenancyID: id, Actor: actor(c), Reason: req.Reason})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"tenancy": newTenancyView(res.Tenancy),
		"room":    newRoomView(res.Room, h.svc.Now()),
	})
}

type invoiceRequest struct {
	PaymentMonth string `json:"payment_month" binding:"required"`
	ProrateFrom  string `json:"prorate_from"`
}

// IssueInvoice handles POST /api/tenancies/:id/invoices.
func (h *Handler) IssueInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	from, err := parseDate(req.ProrateFrom, "prorate_from")
	if err != nil {
		h.fail(c, err)
		return
	}
	ireq := lifecycle.InvoiceRequest{TenancyID: id, Actor: actor(c), PaymentMonth: req.PaymentMonth}
	if !from.IsZero() {
		ireq.ProrateFrom = &from
	}
	res, err := h.svc.GenerateInterimInvoice(c.Request.Context(), ireq)
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"invoice": newInvoiceView(res.Invoice)}
	if res.Proration != nil {
		body["proration"] = res.Proration
	}
	response.Success(c, http.StatusCreated, body)
}
