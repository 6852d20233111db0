package api

import (
	"time"

	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/model"
)

type reservationView struct {
	model.ReservationInfo
	ExpiresInMinutes int `json:"expires_in_minutes"`
}

type roomView struct {
	ID              int64              `json:"id"`
	RoomNumber      string             `json:"room_number"`
	RoomName        string             `json:"room_name,omitempty"`
	Block           string             `json:"block,omitempty"`
	Floor           int                `json:"floor"`
	MonthlyPrice    decimal.Decimal    `json:"monthly_price"`
	Status          model.RoomStatus   `json:"status"`
	IsArchived      bool               `json:"is_archived"`
	ArchiveInfo     *model.ArchiveInfo `json:"archive_info,omitempty"`
	ReservationInfo *reservationView   `json:"reservation_info,omitempty"`
	Version         int64              `json:"version"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func newRoomView(r *model.Room, now time.Time) roomView {
	v := roomView{
		ID:           r.ID,
		RoomNumber:   r.RoomNumber,
		RoomName:     r.RoomName,
		Block:        r.Block,
		Floor:        r.Floor,
		MonthlyPrice: r.MonthlyPrice,
		Status:       r.Status,
		IsArchived:   r.IsArchived,
		ArchiveInfo:  r.ArchiveInfo(),
		Version:      r.Version,
		UpdatedAt:    r.UpdatedAt,
	}
	if ri := r.ReservationInfo(); ri != nil {
		v.ReservationInfo = &reservationView{ReservationInfo: *ri, ExpiresInMinutes: ri.ExpiresInMinutes(now)}
	}
	return v
}

func newRoomViews(rooms []model.Room, now time.Time) []roomView {
	out := make([]roomView, len(rooms))
	for i := range rooms {
		out[i] = newRoomView(&rooms[i], now)
	}
	return out
}

type tenancyView struct {
	ID           int64               `json:"id"`
	RoomID       int64               `json:"room_id"`
	TenantRef    string              `json:"tenant_ref"`
	MonthlyRent  decimal.Decimal     `json:"monthly_rent"`
	Deposit      decimal.Decimal     `json:"deposit"`
	StartDate    string              `json:"start_date"`
	EndDate      *string             `json:"end_date,omitempty"`
	Status       model.TenancyStatus `json:"status"`
	StatusReason string              `json:"status_reason,omitempty"`
}

func newTenancyView(t *model.Tenancy) tenancyView {
	v := tenancyView{
		ID:           t.ID,
		RoomID:       t.RoomID,
		TenantRef:    t.TenantRef,
		MonthlyRent:  t.MonthlyRent,
		Deposit:      t.Deposit,
		StartDate:    t.StartDate.Format(time.DateOnly),
		Status:       t.Status,
		StatusReason: t.StatusReason,
	}
	if t.EndDate != nil {
		end := t.EndDate.Format(time.DateOnly)
		v.EndDate = &end
	}
	return v
}

type invoiceView struct {
	ID           int64             `json:"id"`
	TenancyID    int64             `json:"tenancy_id"`
	TenantRef    string            `json:"tenant_ref"`
	RoomID       int64             `json:"room_id"`
	PaymentMonth string            `json:"payment_month"`
	Kind         model.InvoiceKind `json:"kind"`
	Amount       decimal.Decimal   `json:"amount"`
	FullAmount   decimal.Decimal   `json:"full_amount"`
	ProratedFrom *string           `json:"prorated_from,omitempty"`
	BilledDays   int               `json:"billed_days"`
	DaysInMonth  int               `json:"days_in_month"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

func newInvoiceView(inv *model.Invoice) invoiceView {
	v := invoiceView{
		ID:           inv.ID,
		TenancyID:    inv.TenancyID,
		TenantRef:    inv.TenantRef,
		RoomID:       inv.RoomID,
		PaymentMonth: inv.PaymentMonth,
		Kind:         inv.Kind,
		Amount:       inv.Amount,
		FullAmount:   inv.FullAmount,
		BilledDays:   inv.BilledDays,
		DaysInMonth:  inv.DaysInMonth,
		Status:       inv.Status,
		CreatedAt:    inv.CreatedAt,
	}
	if inv.ProratedFrom != nil {
		from := inv.ProratedFrom.Format(time.DateOnly)
		v.ProratedFrom = &from
	}
	return v
}

func newInvoiceViews(invs []model.Invoice) []invoiceView {
	out := make([]invoiceView, len(invs))
	for i := range invs {
		out[i] = newInvoiceView(&invs[i])
	}
	return out
}

type eventView struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"room_id"`
	TenancyID  *int64    `json:"tenancy_id,omitempty"`
	TenantRef  string    `json:"tenant_ref,omitempty"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEventViews(evs []model.RoomEvent) []eventView {
	out := make([]eventView, len(evs))
	for i, ev := range evs {
		out[i] = eventView{
			ID:         ev.ID,
			RoomID:     ev.RoomID,
			TenancyID:  ev.TenancyID,
			TenantRef:  ev.TenantRef,
			Event:      ev.Event,
			FromStatus: ev.FromStatus,
			ToStatus:   ev.ToStatus,
			Actor:      ev.Actor,
			Reason:     ev.Reason,
			OccurredAt: ev.OccurredAt,
		}
	}
	return out
}
