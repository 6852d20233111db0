package lifecycle

import (
	"context"
	"time"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/tenancy"
)

// AssignTenant opens a tenancy on an available room, or on a room the
// caller reserved, and marks the room occupied.
func (s *Service) AssignTenant(ctx context.Context, req AssignTenantRequest) (*AssignTenantResult, error) {
	res := &AssignTenantResult{}
	err := s.run(ctx, func(u *txn) error {
		room, err := u.loadRoomAt(ctx, req.RoomID, req.ExpectedVersion)
		if err != nil {
			return err
		}
		holders, err := u.tx.Tenancies().CountHolders(ctx, room.ID, 0)
		if err != nil {
			return err
		}
		prev, err := u.tx.Tenancies().Latest(ctx, req.TenantRef)
		if err != nil {
			return err
		}

		terms := tenancy.Terms{
			TenantRef:   req.TenantRef,
			MonthlyRent: room.MonthlyPrice,
			Deposit:     req.Deposit,
			StartDate:   req.StartDate,
		}
		if req.MonthlyRent != nil {
			terms.MonthlyRent = *req.MonthlyRent
		}
		if terms.StartDate.IsZero() {
			terms.StartDate = u.now
		}

		from := room.Status
		t, err := tenancy.Open(prev, room, req.Actor, holders, terms, u.now)
		if err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, room); err != nil {
			return err
		}
		if err := u.tx.Tenancies().Save(ctx, t, model.TenancyMovedOut); err != nil {
			return err
		}
		if err := u.record(ctx, room, model.RoomEvent{
			Event:      EventTenantAssigned,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(from),
			Actor:      req.Actor.ID,
		}); err != nil {
			return err
		}

		res.Room, res.Tenancy = room, t
		res.FirstMonth = s.calc.ProratedAmount(t.MonthlyRent, t.StartDate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TransferRoom moves an active tenancy to another room, previewing the
// rent adjustment for the rest of the month.
func (s *Service) TransferRoom(ctx context.Context, req TransferRoomRequest) (*TransferRoomResult, error) {
	res := &TransferRoomResult{}
	err := s.run(ctx, func(u *txn) error {
		t, err := u.tx.Tenancies().Get(ctx, req.TenancyID)
		if err != nil {
			return err
		}
		from, err := u.loadRoom(ctx, t.RoomID)
		if err != nil {
			return err
		}
		if req.TargetRoomID == from.ID {
			return apperr.Invalid(apperr.SameRoomTransfer, "tenancy %d already occupies room %s", t.ID, from.RoomNumber)
		}
		target, err := u.loadRoom(ctx, req.TargetRoomID)
		if err != nil {
			return err
		}
		targetHolders, err := u.tx.Tenancies().CountHolders(ctx, target.ID, t.ID)
		if err != nil {
			return err
		}

		effective := clock.Date(u.now)
		if !req.EffectiveDate.IsZero() {
			effective = clock.Date(req.EffectiveDate)
		}
		if effective.Before(clock.Date(t.StartDate)) {
			return apperr.Invalid(apperr.InvalidDate, "effective date %s is before the tenancy started (%s)",
				effective.Format(time.DateOnly), clock.Date(t.StartDate).Format(time.DateOnly))
		}
		newRent := target.MonthlyPrice
		if req.MonthlyRent != nil {
			newRent = *req.MonthlyRent
		}

		oldRent, fromStatus, targetStatus := t.MonthlyRent, from.Status, target.Status
		if err := tenancy.Transfer(t, from, target, req.Actor, newRent, targetHolders, u.now); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, from); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, target); err != nil {
			return err
		}
		if err := u.tx.Tenancies().Save(ctx, t, model.TenancyActive); err != nil {
			return err
		}
		if err := u.record(ctx, from, model.RoomEvent{
			Event:      EventTransferredOut,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(fromStatus),
			Actor:      req.Actor.ID,
			Reason:     "to " + target.RoomNumber,
		}); err != nil {
			return err
		}
		if err := u.record(ctx, target, model.RoomEvent{
			Event:      EventTransferredIn,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(targetStatus),
			Actor:      req.Actor.ID,
			Reason:     "from " + from.RoomNumber,
		}); err != nil {
			return err
		}

		res.Tenancy, res.FromRoom, res.ToRoom = t, from, target
		res.Adjustment = s.calc.TransferRentAdjustment(oldRent, newRent, effective)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MoveOut ends an active tenancy, frees its room and previews the refund.
// The refund is informational and is not stored.
func (s *Service) MoveOut(ctx context.Context, req MoveOutRequest) (*MoveOutResult, error) {
	if req.Deposit != nil && req.Deposit.IsNegative() {
		return nil, apperr.Invalid(apperr.InvalidDeposit, "deposit must not be negative, got %s", *req.Deposit)
	}
	res := &MoveOutResult{}
	err := s.run(ctx, func(u *txn) error {
		t, err := u.tx.Tenancies().Get(ctx, req.TenancyID)
		if err != nil {
			return err
		}
		room, err := u.loadRoom(ctx, t.RoomID)
		if err != nil {
			return err
		}
		others, err := u.tx.Tenancies().CountHolders(ctx, room.ID, t.ID)
		if err != nil {
			return err
		}

		date := req.MoveOutDate
		if date.IsZero() {
			date = u.now
		}
		from := room.Status
		if err := tenancy.MoveOut(t, room, date, req.Reason, others, u.now); err != nil {
			return err
		}
		if err := u.tx.Rooms().Save(ctx, room); err != nil {
			return err
		}
		if err := u.tx.Tenancies().Save(ctx, t, model.TenancyActive); err != nil {
			return err
		}
		if err := u.record(ctx, room, model.RoomEvent{
			Event:      EventMovedOut,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(from),
			Actor:      req.Actor.ID,
			Reason:     req.Reason,
		}); err != nil {
			return err
		}

		deposit := t.Deposit
		if req.Deposit != nil {
			deposit = *req.Deposit
		}
		res.Tenancy, res.Room = t, room
		res.Refund = s.calc.MoveOutRefund(t.MonthlyRent, deposit, *t.EndDate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SuspendTenancy pauses an active tenancy; its room stays occupied.
func (s *Service) SuspendTenancy(ctx context.Context, req TenancyChangeRequest) (*TenancyResult, error) {
	return s.changeTenancy(ctx, req, EventSuspended, model.TenancyActive, func(t *model.Tenancy, room *model.Room) error {
		return tenancy.Suspend(t, room, req.Reason)
	})
}

// ReactivateTenancy resumes a suspended tenancy.
func (s *Service) ReactivateTenancy(ctx context.Context, req TenancyChangeRequest) (*TenancyResult, error) {
	return s.changeTenancy(ctx, req, EventReactivated, model.TenancySuspended, func(t *model.Tenancy, room *model.Room) error {
		return tenancy.Reactivate(t, room)
	})
}

func (s *Service) changeTenancy(ctx context.Context, req TenancyChangeRequest, event string, from model.TenancyStatus, apply func(t *model.Tenancy, room *model.Room) error) (*TenancyResult, error) {
	res := &TenancyResult{}
	err := s.run(ctx, func(u *txn) error {
		t, err := u.tx.Tenancies().Get(ctx, req.TenancyID)
		if err != nil {
			return err
		}
		room, err := u.loadRoom(ctx, t.RoomID)
		if err != nil {
			return err
		}
		if err := apply(t, room); err != nil {
			return err
		}
		if err := u.tx.Tenancies().Save(ctx, t, from); err != nil {
			return err
		}
		if err := u.record(ctx, room, model.RoomEvent{
			Event:      event,
			TenancyID:  tenancyID(t),
			TenantRef:  t.TenantRef,
			FromStatus: string(room.Status),
			Actor:      req.Actor.ID,
			Reason:     req.Reason,
		}); err != nil {
			return err
		}
		res.Tenancy, res.Room = t, room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetTenancy reads a tenancy.
func (s *Service) GetTenancy(ctx context.Context, id int64) (*model.Tenancy, error) {
	return s.store.Tenancies().Get(ctx, id)
}

// CurrentTenancy returns the tenancy holding a room for tenantRef.
func (s *Service) CurrentTenancy(ctx context.Context, tenantRef string) (*CurrentTenancy, error) {
	t, err := s.store.Tenancies().Latest(ctx, tenantRef)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.HoldsRoom() {
		return nil, apperr.NotFound(apperr.TenancyNotFound, "tenant %s has no current tenancy", tenantRef)
	}
	room, err := s.store.Rooms().Get(ctx, t.RoomID)
	if err != nil {
		return nil, err
	}
	return &CurrentTenancy{Tenancy: t, Room: room}, nil
}

// TenantHistory returns the newest room events that involved tenantRef.
func (s *Service) TenantHistory(ctx context.Context, tenantRef string, limit int) ([]model.RoomEvent, error) {
	return s.store.Events().ListByTenant(ctx, tenantRef, limit)
}

// ActiveTenancies lists every tenancy currently in the active state.
func (s *Service) ActiveTenancies(ctx context.Context) ([]model.Tenancy, error) {
	return s.store.Tenancies().ListActive(ctx)
}
