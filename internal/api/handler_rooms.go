package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/response"
	"boarding-house-backend/internal/store"
)

// ListRooms handles GET /api/rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	var f store.RoomFilter
	if s := c.Query("status"); s != "" {
		f.Status = model.RoomStatus(s)
		if !f.Status.Valid() {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("unknown room status %q", s))
			return
		}
	}
	f.Block = c.Query("block")
	if s := c.Query("floor"); s != "" {
		floor, err := strconv.Atoi(s)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "floor must be an integer")
			return
		}
		f.Floor = &floor
	}
	f.IncludeArchived = c.Query("include_archived") == "true"
	limit, err := limitQuery(c, 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	f.Limit = limit
	if s := c.Query("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "offset must be a non-negative integer")
			return
		}
		f.Offset = offset
	}

	rooms, err := h.svc.ListRooms(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newRoomViews(rooms, h.svc.Now()))
}

// GetRoom handles GET /api/rooms/:id.
func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	room, err := h.svc.GetRoom(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newRoomView(room, h.svc.Now()))
}

// RoomHistory handles GET /api/rooms/:id/history.
func (h *Handler) RoomHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, err := limitQuery(c, 50)
	if err != nil {
		badRequest(c, err)
		return
	}
	evs, err := h.svc.RoomHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newEventViews(evs))
}

type createRoomRequest struct {
	RoomNumber   string          `json:"room_number" binding:"required"`
	RoomName     string          `json:"room_name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
}

// CreateRoom handles POST /api/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.CreateRoom(c.Request.Context(), lifecycle.CreateRoomRequest{
		Actor:        actor(c),
		RoomNumber:   req.RoomNumber,
		RoomName:     req.RoomName,
		MonthlyPrice: req.MonthlyPrice,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, newRoomView(res.Room, h.svc.Now()))
}

type reserveRequest struct {
	Hours  int    `json:"hours"`
	Reason string `json:"reason"`
}

// ReserveRoom handles POST /api/rooms/:id/reserve.
func (h *Handler) ReserveRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.ReserveRoom(c.Request.Context(), lifecycle.ReserveRoomRequest{
		RoomID: id,
		Actor:  actor(c),
		Hours:  req.Hours,
		Reason: req.Reason,
	})
	h.writeRoom(c, res, err)
}

// CancelReservation handles DELETE /api/rooms/:id/reservation.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.CancelReservation(c.Request.Context(), lifecycle.CancelReservationRequest{RoomID: id, Actor: actor(c)})
	h.writeRoom(c, res, err)
}

type assignRequest struct {
	TenantRef       string           `json:"tenant_ref"`
	MonthlyRent     *decimal.Decimal `json:"monthly_rent"`
	Deposit         decimal.Decimal  `json:"deposit"`
	StartDate       string           `json:"start_date"`
	ExpectedVersion int64            `json:"expected_version"`
}

// AssignTenant handles POST /api/rooms/:id/assign.
func (h *Handler) AssignTenant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.AssignTenant(c.Request.Context(), lifecycle.AssignTenantRequest{
		RoomID:          id,
		Actor:           actor(c),
		TenantRef:       req.TenantRef,
		MonthlyRent:     req.MonthlyRent,
		Deposit:         req.Deposit,
		StartDate:       start,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"room":        newRoomView(res.Room, h.svc.Now()),
		"tenancy":     newTenancyView(res.Tenancy),
		"first_month": res.FirstMonth,
	})
}

type roomChangeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) changeRoom(c *gin.Context, op func(context.Context, lifecycle.RoomChangeRequest) (*lifecycle.RoomResult, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req roomChangeRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := op(c.Request.Context(), lifecycle.RoomChangeRequest{RoomID: id, Actor: actor(c), Reason: req.Reason})
	h.writeRoom(c, res, err)
}

// ArchiveRoom handles POST /api/rooms/:id/archive.
func (h *Handler) ArchiveRoom(c *gin.Context) { h.changeRoom(c, h.svc.ArchiveRoom) }

// UnarchiveRoom handles POST /api/rooms/:id/unarchive.
func (h *Handler) UnarchiveRoom(c *gin.Context) { h.changeRoom(c, h.svc.UnarchiveRoom) }

// SetMaintenance handles POST /api/rooms/:id/maintenance.
func (h *Handler) SetMaintenance(c *gin.Context) { h.changeRoom(c, h.svc.SetMaintenance) }

// SetAvailable handles POST /api/rooms/:id/available.
func (h *Handler) SetAvailable(c *gin.Context) { h.changeRoom(c, h.svc.SetAvailable) }

func (h *Handler) writeRoom(c *gin.Context, res *lifecycle.RoomResult, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, newRoomView(res.Room, h.svc.Now()))
}
