// Package lifecycle composes the room and tenancy state machines and the
// proration calculator into atomic business operations. It is the only
// package that changes a Room and a Tenancy in the same request.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/proration"
	"boarding-house-backend/internal/roomstate"
	"boarding-house-backend/internal/store"
)

// Notifier receives committed events for tenant-facing delivery.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Publisher broadcasts committed events to other services.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Service runs lifecycle operations against a store.
type Service struct {
	store     store.Store
	clock     clock.Clock
	calc      proration.Calculator
	limits    roomstate.Limits
	log       *zap.Logger
	notifier  Notifier
	publisher Publisher
}

type Option func(*Service)

func WithCalculator(c proration.Calculator) Option { return func(s *Service) { s.calc = c } }
func WithLimits(l roomstate.Limits) Option         { return func(s *Service) { s.limits = l } }
func WithLogger(l *zap.Logger) Option              { return func(s *Service) { s.log = l } }
func WithNotifier(n Notifier) Option               { return func(s *Service) { s.notifier = n } }
func WithPublisher(p Publisher) Option             { return func(s *Service) { s.publisher = p } }

// NewService creates a Service. Money is rounded to whole units unless a
// calculator is supplied.
func NewService(s store.Store, clk clock.Clock, opts ...Option) *Service {
	svc := &Service{
		store:  s,
		clock:  clk,
		calc:   proration.New(0),
		limits: roomstate.DefaultLimits,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Calculator exposes the configured proration calculator.
func (s *Service) Calculator() proration.Calculator {
	return s.calc
}

// Now reads the service clock.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// txn carries one operation's transaction and the events it recorded.
type txn struct {
	tx     store.Store
	now    time.Time
	events []Event
}

// run executes fn in a transaction and dispatches its events after commit.
func (s *Service) run(ctx context.Context, fn func(u *txn) error) error {
	u := &txn{now: s.clock.Now()}
	err := s.store.InTx(ctx, func(tx store.Store) error {
		u.tx = tx
		u.events = u.events[:0]
		return fn(u)
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, u.events)
	return nil
}

func (s *Service) dispatch(ctx context.Context, events []Event) {
	for _, ev := range events {
		s.log.Info("room event",
			zap.String("event", ev.Type),
			zap.Int64("room_id", ev.RoomID),
			zap.String("room_number", ev.RoomNumber),
			zap.Int64("tenancy_id", ev.TenancyID),
			zap.String("from", ev.FromStatus),
			zap.String("to", ev.ToStatus),
			zap.String("actor", ev.Actor),
		)
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, ev); err != nil {
				s.log.Warn("failed to publish room event", zap.String("event", ev.Type), zap.Int64("room_id", ev.RoomID), zap.Error(err))
			}
		}
		if s.notifier != nil && ev.TenantRef != "" {
			s.notifier.Notify(ctx, ev)
		}
	}
}

// record appends a RoomEvent for room's current status.
func (u *txn) record(ctx context.Context, room *model.Room, ev model.RoomEvent) error {
	ev.RoomID = room.ID
	ev.ToStatus = string(room.Status)
	ev.OccurredAt = u.now
	if err := u.tx.Events().Append(ctx, &ev); err != nil {
		return err
	}
	out := Event{
		Type:       ev.Event,
		RoomID:     room.ID,
		RoomNumber: room.RoomNumber,
		TenantRef:  ev.TenantRef,
		FromStatus: ev.FromStatus,
		ToStatus:   ev.ToStatus,
		Actor:      ev.Actor,
		Reason:     ev.Reason,
		OccurredAt: ev.OccurredAt,
	}
	if ev.TenancyID != nil {
		out.TenancyID = *ev.TenancyID
	}
	u.events = append(u.events, out)
	return nil
}

// loadRoom reads a room and applies lazy reservation expiry.
func (u *txn) loadRoom(ctx context.Context, id int64) (*model.Room, error) {
	return u.loadRoomAt(ctx, id, 0)
}

// loadRoomAt is loadRoom with an optional optimistic version check.
func (u *txn) loadRoomAt(ctx context.Context, id, expectedVersion int64) (*model.Room, error) {
	room, err := u.tx.Rooms().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && room.Version != expectedVersion {
		return nil, errRoomChanged(room)
	}
	if err := u.normalize(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// normalize persists the expiry of a lapsed reservation.
func (u *txn) normalize(ctx context.Context, room *model.Room) error {
	from, holder := room.Status, room.ReservedBy
	if !roomstate.Normalize(room, u.now) {
		return nil
	}
	if err := u.tx.Rooms().Save(ctx, room); err != nil {
		return err
	}
	return u.record(ctx, room, model.RoomEvent{
		Event:      EventReservationExpired,
		FromStatus: string(from),
		Actor:      SystemActor,
		Reason:     "reservation by " + holder + " lapsed",
	})
}

func tenancyID(t *model.Tenancy) *int64 {
	id := t.ID
	return &id
}
