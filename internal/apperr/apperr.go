package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected lifecycle operation.
type Kind string

const (
	KindGuard      Kind = "guard_violation"
	KindValidation Kind = "validation_error"
	KindConflict   Kind = "conflict_error"
	KindNotFound   Kind = "not_found"
)

// Codes naming the violated guard or invalid input.
const (
	RoomOccupied          = "RoomOccupied"
	RoomArchived          = "RoomArchived"
	RoomNotArchived       = "RoomNotArchived"
	RoomReserved          = "RoomReserved"
	RoomUnderMaintenance  = "RoomUnderMaintenance"
	RoomHasActiveTenancy  = "RoomHasActiveTenancy"
	ReservationExpired    = "ReservationExpired"
	NotReservationHolder  = "NotReservationHolder"
	NoReservation         = "NoReservation"
	InvalidTransition     = "InvalidTransition"
	InvalidDuration       = "InvalidDuration"
	InvalidRent           = "InvalidRent"
	InvalidDeposit        = "InvalidDeposit"
	InvalidDate           = "InvalidDate"
	InvalidMoveOutDate    = "InvalidMoveOutDate"
	InvalidPaymentMonth   = "InvalidPaymentMonth"
	ReasonRequired        = "ReasonRequired"
	TenantRequired        = "TenantRequired"
	TenantHasTenancy      = "TenantHasActiveTenancy"
	TenancyNotActive      = "TenancyNotActive"
	TenancyNotSuspended   = "TenancyNotSuspended"
	TenancyClosed         = "TenancyClosed"
	SameRoomTransfer      = "SameRoomTransfer"
	RoomNoLongerAvailable = "RoomNoLongerAvailable"
	DuplicateInvoice      = "DuplicateInvoice"
	RoomNotFound          = "RoomNotFound"
	TenancyNotFound       = "TenancyNotFound"
	DuplicateRoomNumber   = "DuplicateRoomNumber"
	InvalidRoomNumber     = "InvalidRoomNumber"
	InvalidPrice          = "InvalidPrice"
	TenancyChanged        = "TenancyChanged"
)

// Error is the typed rejection returned by every lifecycle operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error with the same code, so errors.Is works against
// the package-level sentinels built with the constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Guard reports a transition forbidden by the current state.
func Guard(code, format string, args ...any) *Error {
	return newf(KindGuard, code, format, args...)
}

// Invalid reports malformed input.
func Invalid(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

// Conflict reports a failed optimistic check or a duplicate.
func Conflict(code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

// NotFound reports a missing Room or Tenancy.
func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// HasCode reports whether err carries the given rejection code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
