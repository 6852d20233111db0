package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/parse"
)

// Store groups the repositories used by the lifecycle service. A Store
// returned to an InTx callback is bound to that transaction.
type Store interface {
	Rooms() RoomRepository
	Tenancies() TenancyRepository
	Invoices() InvoiceRepository
	Events() EventRepository
	Subscriptions() SubscriptionRepository

	// InTx runs fn inside a database transaction. fn must only use the
	// Store it is given; an error rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error
	DB() *gorm.DB
}

// RoomFilter narrows ListRooms. Zero values mean "any".
type RoomFilter struct {
	Status          model.RoomStatus
	Block           string
	Floor           *int
	IncludeArchived bool
	Limit           int
	Offset          int
}

type RoomRepository interface {
	Get(ctx context.Context, id int64) (*model.Room, error)
	GetByNumber(ctx context.Context, number string) (*model.Room, error)
	List(ctx context.Context, f RoomFilter) ([]model.Room, error)
	Create(ctx context.Context, room *model.Room) error
	// Save writes room only if its stored version still equals room.Version,
	// then bumps room.Version.
	Save(ctx context.Context, room *model.Room) error
}

type TenancyRepository interface {
	Get(ctx context.Context, id int64) (*model.Tenancy, error)
	ListByRoom(ctx context.Context, roomID int64) ([]model.Tenancy, error)
	ListByTenant(ctx context.Context, tenantRef string) ([]model.Tenancy, error)
	ListActive(ctx context.Context) ([]model.Tenancy, error)
	// CountHolders counts active or suspended tenancies bound to roomID,
	// ignoring excludeID.
	CountHolders(ctx context.Context, roomID, excludeID int64) (int, error)
	// Latest returns the tenant's holding tenancy if any, else the most
	// recent record, else nil.
	Latest(ctx context.Context, tenantRef string) (*model.Tenancy, error)
	// Save inserts a new tenancy, or updates one whose stored status still
	// equals from.
	Save(ctx context.Context, t *model.Tenancy, from model.TenancyStatus) error
}

type InvoiceRepository interface {
	Exists(ctx context.Context, tenantRef, month string) (bool, error)
	Create(ctx context.Context, inv *model.Invoice) error
	ListByTenant(ctx context.Context, tenantRef string) ([]model.Invoice, error)
	ListByMonth(ctx context.Context, month string) ([]model.Invoice, error)
}

type EventRepository interface {
	Append(ctx context.Context, ev *model.RoomEvent) error
	ListByRoom(ctx context.Context, roomID int64, limit int) ([]model.RoomEvent, error)
	ListByTenant(ctx context.Context, tenantRef string, limit int) ([]model.RoomEvent, error)
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	ListByTenant(ctx context.Context, tenantRef string) ([]model.PushSubscription, error)
	Delete(ctx context.Context, tenantRef, endpoint string) error
	// DeleteExpired drops an endpoint the push service reported as gone.
	DeleteExpired(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Rooms() RoomRepository                 { return roomRepo{s.db} }
func (s *gormStore) Tenancies() TenancyRepository          { return tenancyRepo{s.db} }
func (s *gormStore) Invoices() InvoiceRepository           { return invoiceRepo{s.db} }
func (s *gormStore) Events() EventRepository               { return eventRepo{s.db} }
func (s *gormStore) Subscriptions() SubscriptionRepository { return subscriptionRepo{s.db} }
func (s *gormStore) DB() *gorm.DB                          { return s.db }

func (s *gormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// --- rooms ---

type roomRepo struct{ db *gorm.DB }

func (r roomRepo) Get(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.RoomNotFound, "room %d not found", id)
		}
		return nil, fmt.Errorf("failed to load room %d: %w", id, err)
	}
	return &room, nil
}

func (r roomRepo) GetByNumber(ctx context.Context, number string) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("room_number = ?", number).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.RoomNotFound, "room %s not found", number)
		}
		return nil, fmt.Errorf("failed to load room %s: %w", number, err)
	}
	return &room, nil
}

func (r roomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	q := r.db.WithContext(ctx).Model(&model.Room{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.IncludeArchived && f.Status != model.RoomArchived {
		q = q.Where("is_archived = ?", false)
	}
	if f.Block != "" {
		q = q.Where("block = ?", f.Block)
	}
	if f.Floor != nil {
		q = q.Where("floor = ?", *f.Floor)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rooms []model.Room
	if err := q.Order("block, floor, room_number").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (r roomRepo) Create(ctx context.Context, room *model.Room) error {
	room.RoomNumber = strings.TrimSpace(room.RoomNumber)
	if room.RoomNumber == "" {
		return apperr.Invalid(apperr.InvalidRoomNumber, "room number is required")
	}
	if !room.MonthlyPrice.IsPositive() {
		return apperr.Invalid(apperr.InvalidPrice, "monthly price must be positive, got %s", room.MonthlyPrice)
	}
	if room.Block == "" && room.Floor == 0 {
		parsed, err := parse.ParseRoomNumber(room.RoomNumber)
		if err != nil {
			return apperr.Invalid(apperr.InvalidRoomNumber, "room number %q has no floor, use forms like A-203, B2-05 or 1205", room.RoomNumber)
		}
		room.Block = parsed.Block
		room.Floor = parsed.Floor
	}
	if room.Status == "" {
		room.Status = model.RoomAvailable
	}
	room.IsArchived = room.Status == model.RoomArchived
	room.Version = 1

	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(apperr.DuplicateRoomNumber, "room number %s already exists", room.RoomNumber)
		}
		return fmt.Errorf("failed to create room %s: %w", room.RoomNumber, err)
	}
	return nil
}

func (r roomRepo) Save(ctx context.Context, room *model.Room) error {
	prev := room.Version
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("id = ? AND version = ?", room.ID, prev).
		Updates(map[string]any{
			"room_name":       room.RoomName,
			"block":           room.Block,
			"floor":           room.Floor,
			"monthly_price":   room.MonthlyPrice,
			"status":          room.Status,
			"is_archived":     room.IsArchived,
			"archived_at":     room.ArchivedAt,
			"archived_reason": room.ArchivedReason,
			"reserved_at":     room.ReservedAt,
			"reserved_until":  room.ReservedUntil,
			"reserved_by":     room.ReservedBy,
			"reserved_reason": room.ReservedReason,
			"version":         prev + 1,
			"updated_at":      now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save room %d: %w", room.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict(apperr.RoomNoLongerAvailable, "room %s was changed by another request", room.RoomNumber)
	}
	room.Version = prev + 1
	room.UpdatedAt = now
	return nil
}

// --- tenancies ---

type tenancyRepo struct{ db *gorm.DB }

func (r tenancyRepo) Get(ctx context.Context, id int64) (*model.Tenancy, error) {
	var t model.Tenancy
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.TenancyNotFound, "tenancy %d not found", id)
		}
		return nil, fmt.Errorf("failed to load tenancy %d: %w", id, err)
	}
	return &t, nil
}

func (r tenancyRepo) ListByRoom(ctx context.Context, roomID int64) ([]model.Tenancy, error) {
	var ts []model.Tenancy
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenancies of room %d: %w", roomID, err)
	}
	return ts, nil
}

func (r tenancyRepo) ListByTenant(ctx context.Context, tenantRef string) ([]model.Tenancy, error) {
	var ts []model.Tenancy
	if err := r.db.WithContext(ctx).Where("tenant_ref = ?", tenantRef).Order("id DESC").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenancies of %s: %w", tenantRef, err)
	}
	return ts, nil
}

func (r tenancyRepo) ListActive(ctx context.Context) ([]model.Tenancy, error) {
	var ts []model.Tenancy
	if err := r.db.WithContext(ctx).Where("status = ?", model.TenancyActive).Order("id").Find(&ts).Error; err != nil {
		return nil, fmt.Errorf("failed to list active tenancies: %w", err)
	}
	return ts, nil
}

func (r tenancyRepo) CountHolders(ctx context.Context, roomID, excludeID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Tenancy{}).
		Where("room_id = ? AND id <> ? AND status IN ?", roomID, excludeID,
			[]model.TenancyStatus{model.TenancyActive, model.TenancySuspended}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tenancies of room %d: %w", roomID, err)
	}
	return int(n), nil
}

func (r tenancyRepo) Latest(ctx context.Context, tenantRef string) (*model.Tenancy, error) {
	ts, err := r.ListByTenant(ctx, tenantRef)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, nil
	}
	for i := range ts {
		if ts[i].HoldsRoom() {
			return &ts[i], nil
		}
	}
	return &ts[0], nil
}

func (r tenancyRepo) Save(ctx context.Context, t *model.Tenancy, from model.TenancyStatus) error {
	if t.ID == 0 {
		if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict(apperr.TenancyChanged, "tenant %s already holds a room", t.TenantRef)
			}
			return fmt.Errorf("failed to create tenancy for %s: %w", t.TenantRef, err)
		}
		return nil
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Tenancy{}).
		Where("id = ? AND status = ?", t.ID, from).
		Updates(map[string]any{
			"room_id":       t.RoomID,
			"tenant_ref":    t.TenantRef,
			"monthly_rent":  t.MonthlyRent,
			"deposit":       t.Deposit,
			"start_date":    t.StartDate,
			"end_date":      t.EndDate,
			"status":        t.Status,
			"status_reason": t.StatusReason,
			"updated_at":    now,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return apperr.Conflict(apperr.TenancyChanged, "tenant %s already holds a room", t.TenantRef)
		}
		return fmt.Errorf("failed to save tenancy %d: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict(apperr.TenancyChanged, "tenancy %d was changed by another request", t.ID)
	}
	t.UpdatedAt = now
	return nil
}

// --- invoices ---

type invoiceRepo struct{ db *gorm.DB }

func (r invoiceRepo) Exists(ctx context.Context, tenantRef, month string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("tenant_ref = ? AND payment_month = ?", tenantRef, month).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up invoice %s/%s: %w", tenantRef, month, err)
	}
	return n > 0, nil
}

func (r invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(apperr.DuplicateInvoice, "an invoice for %s already exists for %s", inv.PaymentMonth, inv.TenantRef)
		}
		return fmt.Errorf("failed to create invoice %s/%s: %w", inv.TenantRef, inv.PaymentMonth, err)
	}
	return nil
}

func (r invoiceRepo) ListByTenant(ctx context.Context, tenantRef string) ([]model.Invoice, error) {
	var invs []model.Invoice
	if err := r.db.WithContext(ctx).Where("tenant_ref = ?", tenantRef).Order("payment_month DESC").Find(&invs).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices of %s: %w", tenantRef, err)
	}
	return invs, nil
}

func (r invoiceRepo) ListByMonth(ctx context.Context, month string) ([]model.Invoice, error) {
	var invs []model.Invoice
	if err := r.db.WithContext(ctx).Where("payment_month = ?", month).Order("room_id, id").Find(&invs).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices for %s: %w", month, err)
	}
	return invs, nil
}

// --- events ---

type eventRepo struct{ db *gorm.DB }

func (r eventRepo) Append(ctx context.Context, ev *model.RoomEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("failed to record %s event for room %d: %w", ev.Event, ev.RoomID, err)
	}
	return nil
}

func (r eventRepo) ListByRoom(ctx context.Context, roomID int64, limit int) ([]model.RoomEvent, error) {
	var evs []model.RoomEvent
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("occurred_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&evs).Error; err != nil {
		return nil, fmt.Errorf("failed to list events of room %d: %w", roomID, err)
	}
	return evs, nil
}

func (r eventRepo) ListByTenant(ctx context.Context, tenantRef string, limit int) ([]model.RoomEvent, error) {
	var evs []model.RoomEvent
	q := r.db.WithContext(ctx).Where("tenant_ref = ?", tenantRef).Order("occurred_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&evs).Error; err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", tenantRef, err)
	}
	return evs, nil
}

// --- push subscriptions ---

type subscriptionRepo struct{ db *gorm.DB }

func (r subscriptionRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "tenant_ref"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription for %s: %w", sub.TenantRef, err)
	}
	return nil
}

func (r subscriptionRepo) ListByTenant(ctx context.Context, tenantRef string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := r.db.WithContext(ctx).Where("tenant_ref = ?", tenantRef).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of %s: %w", tenantRef, err)
	}
	return subs, nil
}

func (r subscriptionRepo) Delete(ctx context.Context, tenantRef, endpoint string) error {
	err := r.db.WithContext(ctx).
		Where("endpoint = ? AND tenant_ref = ?", endpoint, tenantRef).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (r subscriptionRepo) DeleteExpired(ctx context.Context, endpoint string) error {
	if err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete expired subscription: %w", err)
	}
	return nil
}

// isUniqueViolation recognises duplicate-key errors from either driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
