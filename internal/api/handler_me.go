package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boarding-house-backend/internal/response"
)

// MyTenancy handles GET /api/me/tenancy.
func (h *Handler) MyTenancy(c *gin.Context) {
	cur, err := h.svc.CurrentTenancy(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"tenancy": newTenancyView(cur.Tenancy),
		"room":    newRoomView(cur.Room, h.svc.Now()),
	})
}

// MyInvoices handles GET /api/me/invoices.
func (h *Handler) MyInvoices(c *gin.Context) {
	invs, err := h.svc.TenantInvoices(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newInvoiceViews(invs))
}

// MyHistory handles GET /api/me/history.
func (h *Handler) MyHistory(c *gin.Context) {
	limit, err := limitQuery(c, 50)
	if err != nil {
		badRequest(c, err)
		return
	}
	evs, err := h.svc.TenantHistory(c.Request.Context(), actor(c).ID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newEventViews(evs))
}
