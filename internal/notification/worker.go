package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to the tenant's service worker.
type Payload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Type       string `json:"type"`
	RoomNumber string `json:"room_number"`
}

// Message renders the tenant-facing text of an event. Events a tenant
// does not need to hear about return false.
func Message(ev lifecycle.Event) (Payload, bool) {
	p := Payload{Type: ev.Type, RoomNumber: ev.RoomNumber}
	switch ev.Type {
	case lifecycle.EventTenantAssigned:
		p.Title = "Welcome"
		p.Body = fmt.Sprintf("Room %s has been assigned to you.", ev.RoomNumber)
	case lifecycle.EventTransferredIn:
		p.Title = "Room transfer"
		p.Body = fmt.Sprintf("You have been moved to room %s.", ev.RoomNumber)
	case lifecycle.EventMovedOut:
		p.Title = "Move-out recorded"
		p.Body = fmt.Sprintf("Your tenancy in room %s has ended.", ev.RoomNumber)
	case lifecycle.EventSuspended:
		p.Title = "Tenancy suspended"
		p.Body = fmt.Sprintf("Your tenancy in room %s is suspended: %s", ev.RoomNumber, ev.Reason)
	case lifecycle.EventReactivated:
		p.Title = "Tenancy reactivated"
		p.Body = fmt.Sprintf("Your tenancy in room %s is active again.", ev.RoomNumber)
	case lifecycle.EventInvoiceIssued:
		p.Title = "New invoice"
		p.Body = fmt.Sprintf("A rent invoice was issued for room %s (%s).", ev.RoomNumber, ev.Reason)
	default:
		return Payload{}, false
	}
	return p, true
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan lifecycle.Event
	subs    store.SubscriptionRepository
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.SubscriptionRepository, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan lifecycle.Event, size*16), // Buffered channel
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForTenant(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify implements lifecycle.Notifier. It queues the event, or drops it
// when the queue is full so a slow push service never stalls a request.
func (wp *WorkerPool) Notify(_ context.Context, ev lifecycle.Event) {
	if _, ok := Message(ev); !ok {
		return
	}
	select {
	case wp.jobs <- ev:
	default:
		wp.log.Warn("notification queue full, dropping event", zap.String("event", ev.Type), zap.String("tenant_ref", ev.TenantRef))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan lifecycle.Event {
	return wp.jobs
}

// sendNotificationsForTenant fetches a tenant's subscriptions and pushes the event to each.
func (wp *WorkerPool) sendNotificationsForTenant(ctx context.Context, ev lifecycle.Event) {
	msg, ok := Message(ev)
	if !ok {
		return
	}
	subscriptions, err := wp.subs.ListByTenant(ctx, ev.TenantRef)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.String("tenant_ref", ev.TenantRef), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		wp.log.Error("failed to encode notification", zap.Error(err))
		return
	}
	wp.log.Info("sending notifications", zap.Int("count", len(subscriptions)), zap.String("tenant_ref", ev.TenantRef), zap.String("event", ev.Type))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteExpired(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
