package lifecycle

import (
	"context"
	"fmt"
	"time"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/proration"
)

// MonthLayout is the format of Invoice.PaymentMonth.
const MonthLayout = "2006-01"

// ParseMonth validates a "YYYY-MM" payment month and returns its first day.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, apperr.Invalid(apperr.InvalidPaymentMonth, "payment month %q is not in YYYY-MM form", month)
	}
	return t, nil
}

// GenerateInterimInvoice issues the rent invoice of one month for a
// tenancy: the full monthly rent, or the remaining days from ProrateFrom.
// A second invoice for the same tenant and month is a conflict.
func (s *Service) GenerateInterimInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	first, err := ParseMonth(req.PaymentMonth)
	if err != nil {
		return nil, err
	}
	if req.ProrateFrom != nil {
		d := clock.Date(*req.ProrateFrom)
		if d.Year() != first.Year() || d.Month() != first.Month() {
			return nil, apperr.Invalid(apperr.InvalidDate, "prorate date %s is outside %s", d.Format(time.DateOnly), req.PaymentMonth)
		}
	}

	res := &InvoiceResult{}
	err = s.run(ctx, func(u *txn) error {
		t, err := u.tx.Tenancies().Get(ctx, req.TenancyID)
		if err != nil {
			return err
		}
		if t.Status == model.TenancyMovedOut {
			return apperr.Guard(apperr.TenancyClosed, "tenancy %d has moved out and cannot be invoiced", t.ID)
		}
		if req.ProrateFrom != nil && clock.Date(*req.ProrateFrom).Before(clock.Date(t.StartDate)) {
			return apperr.Invalid(apperr.InvalidDate, "prorate date %s is before the tenancy started (%s)",
				clock.Date(*req.ProrateFrom).Format(time.DateOnly), clock.Date(t.StartDate).Format(time.DateOnly))
		}
		exists, err := u.tx.Invoices().Exists(ctx, t.TenantRef, req.PaymentMonth)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict(apperr.DuplicateInvoice, "an invoice for %s already exists for %s", req.PaymentMonth, t.TenantRef)
		}
		room, err := u.tx.Rooms().Get(ctx, t.RoomID)
		if err != nil {
			return err
		}

		inv := &model.Invoice{
			TenancyID:    t.ID,
			TenantRef:    t.TenantRef,
			PaymentMonth: req.PaymentMonth,
			RoomID:       t.RoomID,
			Kind:         model.InvoiceMonthly,
			Amount:       t.MonthlyRent.Round(s.calc.Scale),
			FullAmount:   t.MonthlyRent,
			BilledDays:   proration.DaysInMonth(first),
			DaysInMonth:  proration.DaysInMonth(first),
			Status:       "pending",
			CreatedAt:    u.now,
		}
		if req.ProrateFrom != nil {
			from := clock.Date(*req.ProrateFrom)
			p := s.calc.ProratedAmount(t.MonthlyRent, from)
			inv.Kind = model.InvoiceProrated
			inv.Amount = p.Amount
			inv.ProratedFrom = &from
			inv.BilledDays = p.RemainingDays
			res.Proration = &p
		}
		if err := u.tx.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		if err := u.record(ctx, room, model.RoomEvent{
			Event:      EventInvoiceIssued,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(room.Status),
			Actor:      req.Actor.ID,
			Reason:     fmt.Sprintf("%s %s %s", inv.PaymentMonth, inv.Kind, inv.Amount),
		}); err != nil {
			return err
		}
		res.Invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TenantInvoices lists a tenant's invoices, newest month first.
func (s *Service) TenantInvoices(ctx context.Context, tenantRef string) ([]model.Invoice, error) {
	return s.store.Invoices().ListByTenant(ctx, tenantRef)
}

// MonthInvoices lists every invoice of a payment month.
func (s *Service) MonthInvoices(ctx context.Context, month string) ([]model.Invoice, error) {
	if _, err := ParseMonth(month); err != nil {
		return nil, err
	}
	return s.store.Invoices().ListByMonth(ctx, month)
}

// Preview runs the proration calculator without touching any state.
func (s *Service) Preview(req PreviewRequest) (*PreviewResult, error) {
	if !req.MonthlyAmount.IsPositive() {
		return nil, apperr.Invalid(apperr.InvalidRent, "monthly amount must be positive, got %s", req.MonthlyAmount)
	}
	if req.Date.IsZero() {
		return nil, apperr.Invalid(apperr.InvalidDate, "a reference date is required")
	}
	date := clock.Date(req.Date)
	res := &PreviewResult{Proration: s.calc.ProratedAmount(req.MonthlyAmount, date)}
	if req.Deposit != nil {
		if req.Deposit.IsNegative() {
			return nil, apperr.Invalid(apperr.InvalidDeposit, "deposit must not be negative, got %s", *req.Deposit)
		}
		r := s.calc.MoveOutRefund(req.MonthlyAmount, *req.Deposit, date)
		res.Refund = &r
	}
	if req.NewAmount != nil {
		if !req.NewAmount.IsPositive() {
			return nil, apperr.Invalid(apperr.InvalidRent, "new monthly amount must be positive, got %s", *req.NewAmount)
		}
		a := s.calc.TransferRentAdjustment(req.MonthlyAmount, *req.NewAmount, date)
		res.Adjustment = &a
	}
	return res, nil
}
