package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/proration"
	"boarding-house-backend/internal/roomstate"
)

// SystemActor is recorded for transitions nobody requested, such as expiry.
const SystemActor = "system"

// Event types, also stored in room_events.event.
const (
	EventRoomCreated          = "room_created"
	EventReserved             = "room_reserved"
	EventReservationCancelled = "reservation_cancelled"
	EventReservationExpired   = "reservation_expired"
	EventTenantAssigned       = "tenant_assigned"
	EventTransferredOut       = "tenant_transferred_out"
	EventTransferredIn        = "tenant_transferred_in"
	EventMovedOut             = "tenant_moved_out"
	EventSuspended            = "tenancy_suspended"
	EventReactivated          = "tenancy_reactivated"
	EventArchived             = "room_archived"
	EventUnarchived           = "room_unarchived"
	EventMaintenance          = "room_maintenance"
	EventAvailable            = "room_available"
	EventInvoiceIssued        = "invoice_issued"
)

// Event is a committed transition as seen by notifiers and publishers.
type Event struct {
	Type       string    `json:"type"`
	RoomID     int64     `json:"room_id"`
	RoomNumber string    `json:"room_number"`
	TenancyID  int64     `json:"tenancy_id,omitempty"`
	TenantRef  string    `json:"tenant_ref,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CreateRoomRequest struct {
	Actor        roomstate.Actor
	RoomNumber   string
	RoomName     string
	MonthlyPrice decimal.Decimal
}

type ReserveRoomRequest struct {
	RoomID int64
	Actor  roomstate.Actor
	Hours  int
	Reason string
}

type CancelReservationRequest struct {
	RoomID int64
	Actor  roomstate.Actor
}

// RoomChangeRequest drives archive, unarchive and the maintenance toggle.
type RoomChangeRequest struct {
	RoomID int64
	Actor  roomstate.Actor
	Reason string
}

type RoomResult struct {
	Room *model.Room
}

type AssignTenantRequest struct {
	RoomID    int64
	Actor     roomstate.Actor
	TenantRef string
	// MonthlyRent defaults to the room's price.
	MonthlyRent *decimal.Decimal
	Deposit     decimal.Decimal
	// StartDate defaults to today.
	StartDate time.Time
	// ExpectedVersion, when set, is the room version the caller last read.
	ExpectedVersion int64
}

type AssignTenantResult struct {
	Room       *model.Room
	Tenancy    *model.Tenancy
	FirstMonth proration.Proration
}

type TransferRoomRequest struct {
	TenancyID    int64
	TargetRoomID int64
	Actor        roomstate.Actor
	// EffectiveDate defaults to today.
	EffectiveDate time.Time
	// MonthlyRent defaults to the target room's price.
	MonthlyRent *decimal.Decimal
}

type TransferRoomResult struct {
	Tenancy    *model.Tenancy
	FromRoom   *model.Room
	ToRoom     *model.Room
	Adjustment proration.Adjustment
}

type MoveOutRequest struct {
	TenancyID int64
	Actor     roomstate.Actor
	// MoveOutDate defaults to today.
	MoveOutDate time.Time
	Reason      string
	// Deposit overrides the deposit recorded at assignment.
	Deposit *decimal.Decimal
}

type MoveOutResult struct {
	Tenancy *model.Tenancy
	Room    *model.Room
	Refund  proration.Refund
}

type TenancyChangeRequest struct {
	TenancyID int64
	Actor     roomstate.Actor
	Reason    string
}

type TenancyResult struct {
	Tenancy *model.Tenancy
	Room    *model.Room
}

type InvoiceRequest struct {
	TenancyID int64
	Actor     roomstate.Actor
	// PaymentMonth is "YYYY-MM".
	PaymentMonth string
	// ProrateFrom, when set, bills only the remaining days from that date.
	ProrateFrom *time.Time
}

type InvoiceResult struct {
	Invoice   *model.Invoice
	Proration *proration.Proration
}

type PreviewRequest struct {
	MonthlyAmount decimal.Decimal
	Date          time.Time
	// Deposit adds a move-out refund to the preview.
	Deposit *decimal.Decimal
	// NewAmount adds a transfer adjustment to the preview.
	NewAmount *decimal.Decimal
}

type PreviewResult struct {
	Proration  proration.Proration   `json:"proration"`
	Refund     *proration.Refund     `json:"refund,omitempty"`
	Adjustment *proration.Adjustment `json:"adjustment,omitempty"`
}

// CurrentTenancy is a tenant's holding tenancy and its room.
type CurrentTenancy struct {
	Tenancy *model.Tenancy
	Room    *model.Room
}

func errRoomChanged(room *model.Room) error {
	return apperr.Conflict(apperr.RoomNoLongerAvailable, "room %s changed since it was read (now %s, version %d)",
		room.RoomNumber, room.Status, room.Version)
}
