package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/auth"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/mw"
	"boarding-house-backend/internal/response"
	"boarding-house-backend/internal/roomstate"
	"boarding-house-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *lifecycle.Service
	store   store.Store
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *lifecycle.Service, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
		log:     log,
	}
}

// actor is the authenticated caller. Admins may act on reservations held
// by anyone.
func actor(c *gin.Context) roomstate.Actor {
	return roomstate.Actor{
		ID:    c.GetString(mw.ActorKey),
		Admin: c.GetString(mw.RoleKey) == auth.RoleAdmin,
	}
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation: http.StatusBadRequest,
	apperr.KindNotFound:   http.StatusNotFound,
	apperr.KindGuard:      http.StatusUnprocessableEntity,
	apperr.KindConflict:   http.StatusConflict,
}

// fail writes err as an error envelope. Rejections keep their code;
// anything else is logged and hidden behind a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		response.Error(c, statusByKind[e.Kind], e.Code, e.Message)
		return
	}
	_ = c.Error(err)
	h.log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func badRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperr.Invalid(apperr.InvalidDate, "%s %q is not a YYYY-MM-DD date", field, raw)
	}
	return t, nil
}

func limitQuery(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

// Health reports liveness and database reachability.
func (h *Handler) Health(c *gin.Context) {
	if h.store != nil {
		if sqlDB, err := h.store.DB().DB(); err == nil {
			if err := sqlDB.PingContext(c.Request.Context()); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
				return
			}
		}
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
