package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/auth"
	"boarding-house-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler, tokens *auth.Service, log *zap.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(mw.RequestLogger(log))

	// Initialize middleware
	limits := mw.RateLimits{
		Read:       rate.Limit(cfg.RateLimitPerSec),
		ReadBurst:  cfg.RateLimitBurst,
		Write:      rate.Limit(cfg.WriteRateLimitPerSec),
		WriteBurst: cfg.WriteRateLimitBurst,
	}
	if limits.Write <= 0 || limits.WriteBurst <= 0 {
		limits.Write, limits.WriteBurst = limits.Read, limits.ReadBurst
	}
	rateLimiter := mw.NewClientRateLimiter(limits, cfg.RequestIPHeader).Middleware()

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl, previewCacheKey)

	r.GET("/healthz", handler.Health)

	// API group
	api := r.Group("/api")
	{
		api.GET("/billing/proration", rateLimiter, caching, handler.Preview)
		api.GET("/vapid_public_key", rateLimiter, handler.GetVAPIDPublicKey)
	}

	// Authenticated clients are limited per actor.
	authed := api.Group("")
	authed.Use(mw.JWTAuth(tokens), rateLimiter)

	staff := authed.Group("")
	staff.Use(mw.StaffOnly())
	{
		staff.GET("/rooms", handler.ListRooms)
		staff.GET("/rooms/:id", handler.GetRoom)
		staff.GET("/rooms/:id/history", handler.RoomHistory)
		staff.POST("/rooms/:id/reserve", handler.ReserveRoom)
		staff.DELETE("/rooms/:id/reservation", handler.CancelReservation)
		staff.POST("/rooms/:id/assign", handler.AssignTenant)
		staff.POST("/rooms/:id/maintenance", handler.SetMaintenance)
		staff.POST("/rooms/:id/available", handler.SetAvailable)

		staff.GET("/tenancies/:id", handler.GetTenancy)
		staff.POST("/tenancies/:id/transfer", handler.TransferRoom)
		staff.POST("/tenancies/:id/move-out", handler.MoveOut)
		staff.POST("/tenancies/:id/suspend", handler.SuspendTenancy)
		staff.POST("/tenancies/:id/reactivate", handler.ReactivateTenancy)
		staff.POST("/tenancies/:id/invoices", handler.IssueInvoice)
	}

	admin := authed.Group("")
	admin.Use(mw.AdminOnly())
	{
		admin.POST("/rooms", handler.CreateRoom)
		admin.POST("/rooms/:id/archive", handler.ArchiveRoom)
		admin.POST("/rooms/:id/unarchive", handler.UnarchiveRoom)
		admin.GET("/admin/invoices", handler.MonthInvoices)
		admin.GET("/admin/invoices/export", handler.ExportInvoices)
	}

	me := authed.Group("/me")
	me.Use(mw.RequireRole(auth.RoleTenant))
	{
		me.GET("/tenancy", handler.MyTenancy)
		me.GET("/invoices", handler.MyInvoices)
		me.GET("/history", handler.MyHistory)
		me.GET("/subscriptions", handler.GetSubscription)
		me.PUT("/subscriptions", handler.PutSubscription)
		me.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
