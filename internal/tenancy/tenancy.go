// Package tenancy owns the contract state of a tenancy
//
//	active <-> suspended, active -> moved_out (terminal)
//
// and keeps the bound room in step through roomstate. Every function
// validates first and mutates the tenancy and rooms only on success.
package tenancy

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/roomstate"
)

// Terms are the negotiated conditions of a new tenancy period.
type Terms struct {
	TenantRef   string
	MonthlyRent decimal.Decimal
	Deposit     decimal.Decimal
	StartDate   time.Time
}

// Open starts a tenancy on room and marks the room occupied. prev is the
// tenant's most recent tenancy record, if any; a moved_out record is reused
// for the new period (same id, fresh dates) rather than revived.
func Open(prev *model.Tenancy, room *model.Room, actor roomstate.Actor, holders int, terms Terms, now time.Time) (*model.Tenancy, error) {
	if strings.TrimSpace(terms.TenantRef) == "" {
		return nil, apperr.Invalid(apperr.TenantRequired, "tenant reference is required")
	}
	if !terms.MonthlyRent.IsPositive() {
		return nil, apperr.Invalid(apperr.InvalidRent, "monthly rent must be positive, got %s", terms.MonthlyRent)
	}
	if terms.Deposit.IsNegative() {
		return nil, apperr.Invalid(apperr.InvalidDeposit, "deposit must not be negative, got %s", terms.Deposit)
	}
	start := clock.Date(terms.StartDate)
	if start.Before(clock.Date(now)) {
		return nil, apperr.Invalid(apperr.InvalidDate, "start date %s is in the past", start.Format(time.DateOnly))
	}
	if prev != nil && prev.HoldsRoom() {
		return nil, apperr.Guard(apperr.TenantHasTenancy, "tenant %s already holds room %d", prev.TenantRef, prev.RoomID)
	}

	next := *room
	if err := roomstate.Occupy(&next, actor, holders, now); err != nil {
		return nil, err
	}
	*room = next

	t := &model.Tenancy{}
	if prev != nil {
		t.ID = prev.ID
		t.CreatedAt = prev.CreatedAt
	}
	t.RoomID = room.ID
	t.TenantRef = terms.TenantRef
	t.MonthlyRent = terms.MonthlyRent
	t.Deposit = terms.Deposit
	t.StartDate = start
	t.Status = model.TenancyActive
	return t, nil
}

// Suspend pauses an active tenancy. The room stays occupied.
func Suspend(t *model.Tenancy, room *model.Room, reason string) error {
	if err := requireActive(t, "suspended"); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.Invalid(apperr.ReasonRequired, "a suspension reason is required")
	}
	if err := requireBound(t, room); err != nil {
		return err
	}
	t.Status = model.TenancySuspended
	t.StatusReason = reason
	return nil
}

// Reactivate resumes a suspended tenancy.
func Reactivate(t *model.Tenancy, room *model.Room) error {
	if t.Status != model.TenancySuspended {
		return apperr.Guard(apperr.TenancyNotSuspended, "tenancy %d is %s, not suspended", t.ID, t.Status)
	}
	if err := requireBound(t, room); err != nil {
		return err
	}
	t.Status = model.TenancyActive
	t.StatusReason = ""
	return nil
}

// MoveOut ends an active tenancy on date and frees its room. otherHolders
// counts tenancies other than t bound to the room.
func MoveOut(t *model.Tenancy, room *model.Room, date time.Time, reason string, otherHolders int, now time.Time) error {
	if err := requireActive(t, "moved out"); err != nil {
		return err
	}
	if err := requireBound(t, room); err != nil {
		return err
	}
	end := clock.Date(date)
	if end.Before(clock.Date(t.StartDate)) || end.After(clock.Date(now)) {
		return apperr.Invalid(apperr.InvalidMoveOutDate, "move-out date %s must be between %s and today (%s)",
			end.Format(time.DateOnly), clock.Date(t.StartDate).Format(time.DateOnly), clock.Date(now).Format(time.DateOnly))
	}

	next := *room
	if err := roomstate.Vacate(&next, otherHolders); err != nil {
		return err
	}
	*room = next

	t.Status = model.TenancyMovedOut
	t.EndDate = &end
	t.StatusReason = reason
	return nil
}

// Transfer moves an active tenancy from its room to target at newRent.
// target must be available (or reserved by actor) and unbound.
func Transfer(t *model.Tenancy, from, target *model.Room, actor roomstate.Actor, newRent decimal.Decimal, targetHolders int, now time.Time) error {
	if err := requireActive(t, "transferred"); err != nil {
		return err
	}
	if err := requireBound(t, from); err != nil {
		return err
	}
	if from.ID == target.ID {
		return apperr.Invalid(apperr.SameRoomTransfer, "tenancy %d already occupies room %s", t.ID, from.RoomNumber)
	}
	if !newRent.IsPositive() {
		return apperr.Invalid(apperr.InvalidRent, "monthly rent must be positive, got %s", newRent)
	}

	nextTarget := *target
	if err := roomstate.Occupy(&nextTarget, actor, targetHolders, now); err != nil {
		return err
	}
	nextFrom := *from
	if err := roomstate.Vacate(&nextFrom, 0); err != nil {
		return err
	}
	*target = nextTarget
	*from = nextFrom

	t.RoomID = target.ID
	t.MonthlyRent = newRent
	return nil
}

func requireActive(t *model.Tenancy, verb string) error {
	switch t.Status {
	case model.TenancyActive:
		return nil
	case model.TenancyMovedOut:
		return apperr.Guard(apperr.TenancyClosed, "tenancy %d has moved out and cannot be %s", t.ID, verb)
	default:
		return apperr.Guard(apperr.TenancyNotActive, "tenancy %d is %s and cannot be %s", t.ID, t.Status, verb)
	}
}

func requireBound(t *model.Tenancy, room *model.Room) error {
	if room.ID != t.RoomID || room.Status != model.RoomOccupied {
		return apperr.Guard(apperr.InvalidTransition, "tenancy %d is not bound to an occupied room %s", t.ID, room.RoomNumber)
	}
	return nil
}
