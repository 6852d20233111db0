// Package roomstate owns the status, archive and reservation fields of a
// room and enforces the guards on every transition between
//
//	available, occupied, maintenance, reserved, archived
//
// Functions mutate the room only when they return nil. "holders" is the
// number of tenancies (active or suspended) currently bound to the room.
package roomstate

import (
	"time"

	"github.com/shopspring/decimal"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/proration"
)

// Actor is the identity performing a transition.
type Actor struct {
	ID    string
	Admin bool
}

// Limits bounds a reservation's duration in hours.
type Limits struct {
	MinHours int
	MaxHours int
}

// DefaultLimits allows reservations of 1 to 72 hours.
var DefaultLimits = Limits{MinHours: 1, MaxHours: 72}

// Expired reports whether a reserved room's hold has lapsed at now.
func Expired(room *model.Room, now time.Time) bool {
	if room.Status != model.RoomReserved {
		return false
	}
	return room.ReservedUntil == nil || !now.Before(*room.ReservedUntil)
}

// Expire releases a lapsed reservation.
func Expire(room *model.Room, now time.Time) error {
	if room.Status != model.RoomReserved {
		return apperr.Guard(apperr.NoReservation, "room %s is not reserved", room.RoomNumber)
	}
	if !Expired(room, now) {
		return apperr.Guard(apperr.RoomReserved, "reservation on room %s is held until %s",
			room.RoomNumber, room.ReservedUntil.Format(time.RFC3339))
	}
	room.Status = model.RoomAvailable
	room.ClearReservation()
	return nil
}

// Normalize applies lazy reservation expiry and reports whether the room changed.
func Normalize(room *model.Room, now time.Time) bool {
	return Expired(room, now) && Expire(room, now) == nil
}

// Reserve places a time-boxed hold on an available room.
func Reserve(room *model.Room, actor Actor, hours int, reason string, now time.Time, lim Limits) error {
	if hours < lim.MinHours || hours > lim.MaxHours {
		return apperr.Invalid(apperr.InvalidDuration, "reservation must last between %d and %d hours, got %d",
			lim.MinHours, lim.MaxHours, hours)
	}
	if room.Status != model.RoomAvailable {
		return notAvailable(room)
	}
	room.Status = model.RoomReserved
	room.SetReservation(model.ReservationInfo{
		ReservedAt:     now,
		ReservedUntil:  now.Add(time.Duration(hours) * time.Hour),
		ReservedBy:     actor.ID,
		ReservedReason: reason,
	})
	return nil
}

// CancelReservation releases a hold. Only the holder or an admin may cancel.
func CancelReservation(room *model.Room, actor Actor) error {
	if room.Status != model.RoomReserved {
		return apperr.Guard(apperr.NoReservation, "room %s has no reservation", room.RoomNumber)
	}
	if !actor.Admin && actor.ID != room.ReservedBy {
		return apperr.Guard(apperr.NotReservationHolder, "reservation on room %s is held by %s",
			room.RoomNumber, room.ReservedBy)
	}
	room.Status = model.RoomAvailable
	room.ClearReservation()
	return nil
}

// Occupy marks the room occupied for a new tenancy. A reserved room may only
// be occupied by the reservation holder before expiry.
func Occupy(room *model.Room, actor Actor, holders int, now time.Time) error {
	if room.Status == model.RoomOccupied {
		return notAvailable(room)
	}
	if holders > 0 {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "room has active tenancy")
	}
	switch room.Status {
	case model.RoomAvailable:
	case model.RoomReserved:
		if Expired(room, now) {
			return apperr.Guard(apperr.ReservationExpired, "reservation on room %s expired at %s",
				room.RoomNumber, room.ReservedUntil.Format(time.RFC3339))
		}
		if actor.ID != room.ReservedBy {
			return apperr.Guard(apperr.RoomReserved, "room %s is reserved by %s until %s",
				room.RoomNumber, room.ReservedBy, room.ReservedUntil.Format(time.RFC3339))
		}
		room.ClearReservation()
	default:
		return notAvailable(room)
	}
	room.Status = model.RoomOccupied
	return nil
}

// Vacate frees an occupied room once its tenancy no longer holds it.
func Vacate(room *model.Room, holders int) error {
	if room.Status != model.RoomOccupied {
		return apperr.Guard(apperr.InvalidTransition, "room %s is %s, not occupied", room.RoomNumber, room.Status)
	}
	if holders > 0 {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "room has active tenancy")
	}
	room.Status = model.RoomAvailable
	return nil
}

// SetMaintenance takes an available room out of service.
func SetMaintenance(room *model.Room, holders int) error {
	if holders > 0 {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "room has active tenancy")
	}
	if room.Status != model.RoomAvailable {
		return notAvailable(room)
	}
	room.Status = model.RoomMaintenance
	return nil
}

// SetAvailable returns a room under maintenance to service.
func SetAvailable(room *model.Room, holders int) error {
	if holders > 0 {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "room has active tenancy")
	}
	if room.Status != model.RoomMaintenance {
		return apperr.Guard(apperr.InvalidTransition, "room %s is %s, not under maintenance", room.RoomNumber, room.Status)
	}
	room.Status = model.RoomAvailable
	return nil
}

// CanBeArchived returns nil when the room may be archived.
func CanBeArchived(room *model.Room, holders int) error {
	if holders > 0 || room.Status == model.RoomOccupied {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "room has active tenancy")
	}
	switch room.Status {
	case model.RoomAvailable, model.RoomMaintenance:
		return nil
	default:
		return notAvailable(room)
	}
}

// Archive retires a room that nobody holds.
func Archive(room *model.Room, reason string, holders int, now time.Time) error {
	if err := CanBeArchived(room, holders); err != nil {
		return err
	}
	room.Status = model.RoomArchived
	room.SetArchive(model.ArchiveInfo{ArchivedAt: now, ArchivedReason: reason})
	return nil
}

// CanBeUnarchived returns nil when an archived room may return to service.
// A room left bound to a tenancy or carrying a reservation was archived
// mid-transaction and stays archived until repaired.
func CanBeUnarchived(room *model.Room, holders int) error {
	if room.Status != model.RoomArchived {
		return apperr.Guard(apperr.RoomNotArchived, "room %s is not archived", room.RoomNumber)
	}
	if holders > 0 {
		return apperr.Guard(apperr.RoomHasActiveTenancy, "archived room %s still has an active tenancy", room.RoomNumber)
	}
	if room.ReservedAt != nil || room.ReservedBy != "" {
		return apperr.Guard(apperr.InvalidTransition, "archived room %s still carries a reservation", room.RoomNumber)
	}
	return nil
}

// Unarchive returns an archived room to available.
func Unarchive(room *model.Room, holders int) error {
	if err := CanBeUnarchived(room, holders); err != nil {
		return err
	}
	room.Status = model.RoomAvailable
	room.ClearArchive()
	return nil
}

// FirstMonthPreview is the informational pro-rated charge for a tenancy
// starting on start at the room's standard price.
func FirstMonthPreview(calc proration.Calculator, room *model.Room, start time.Time) proration.Proration {
	return calc.ProratedAmount(room.MonthlyPrice, start)
}

// CheckInvariants verifies that the status, the is_archived flag and the
// optional metadata agree, and that occupancy matches the holder count.
func CheckInvariants(room *model.Room, holders int) error {
	if room.IsArchived != (room.Status == model.RoomArchived) {
		return apperr.Guard(apperr.InvalidTransition, "room %s: is_archived=%t but status=%s", room.RoomNumber, room.IsArchived, room.Status)
	}
	if (room.ArchiveInfo() != nil) != (room.Status == model.RoomArchived) {
		return apperr.Guard(apperr.InvalidTransition, "room %s: archive_info does not match status %s", room.RoomNumber, room.Status)
	}
	if (room.ReservationInfo() != nil) != (room.Status == model.RoomReserved) {
		return apperr.Guard(apperr.InvalidTransition, "room %s: reservation_info does not match status %s", room.RoomNumber, room.Status)
	}
	if room.Status != model.RoomReserved && (room.ReservedAt != nil || room.ReservedBy != "") {
		return apperr.Guard(apperr.InvalidTransition, "room %s: stale reservation columns", room.RoomNumber)
	}
	if (room.Status == model.RoomOccupied) != (holders == 1) {
		return apperr.Guard(apperr.InvalidTransition, "room %s: status %s with %d holding tenancies", room.RoomNumber, room.Status, holders)
	}
	return nil
}

// ValidPrice reports whether p can be used as a monthly price.
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive()
}

func notAvailable(room *model.Room) error {
	switch room.Status {
	case model.RoomOccupied:
		return apperr.Guard(apperr.RoomOccupied, "room has active tenancy")
	case model.RoomReserved:
		until := ""
		if room.ReservedUntil != nil {
			until = room.ReservedUntil.Format(time.RFC3339)
		}
		return apperr.Guard(apperr.RoomReserved, "room %s is reserved by %s until %s", room.RoomNumber, room.ReservedBy, until)
	case model.RoomMaintenance:
		return apperr.Guard(apperr.RoomUnderMaintenance, "room %s is under maintenance", room.RoomNumber)
	case model.RoomArchived:
		return apperr.Guard(apperr.RoomArchived, "room %s is archived", room.RoomNumber)
	default:
		return apperr.Guard(apperr.InvalidTransition, "room %s is %s", room.RoomNumber, room.Status)
	}
}
