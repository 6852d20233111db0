// Package app wires configuration into the long-lived components shared by
// the server and the admin CLI.
package app

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/db"
	"boarding-house-backend/internal/events"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/notification"
	"boarding-house-backend/internal/proration"
	"boarding-house-backend/internal/roomstate"
	"boarding-house-backend/internal/store"
)

type App struct {
	Config  *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Store   store.Store
	Clock   clock.Clock
	Service *lifecycle.Service
	// Workers is nil when no VAPID keys are configured.
	Workers *notification.WorkerPool
	Push    *webpush.Options

	redis *redis.Client
}

// New opens the database and builds the lifecycle service with its event
// publisher and notifier.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Log:    log,
		DB:     gormDB,
		Store:  store.NewGormStore(gormDB),
		Clock:  clock.Real{Location: cfg.Billing.Location},
	}

	opts := []lifecycle.Option{
		lifecycle.WithCalculator(proration.New(cfg.Billing.Scale)),
		lifecycle.WithLimits(roomstate.Limits{MinHours: cfg.Reservation.MinHours, MaxHours: cfg.Reservation.MaxHours}),
		lifecycle.WithLogger(log),
	}

	if cfg.Redis.Enabled {
		a.redis = events.NewRedisClient(&cfg.Redis)
		pub := events.NewStreamPublisher(a.redis, cfg.Redis.Stream, cfg.Redis.MaxLen)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := pub.Ping(pingCtx); err != nil {
			log.Warn("redis is unreachable, event publishing will fail until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		opts = append(opts, lifecycle.WithPublisher(pub))
	} else {
		opts = append(opts, lifecycle.WithPublisher(events.Nop{}))
	}

	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		a.Push = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		a.Workers = notification.NewWorkerPool(cfg.WorkerPool.Size, a.Store.Subscriptions(), a.Push, log)
		opts = append(opts, lifecycle.WithNotifier(a.Workers))
	} else {
		log.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	a.Service = lifecycle.NewService(a.Store, a.Clock, opts...)
	return a, nil
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Warn("failed to close database", zap.Error(err))
		}
	}
}
