package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus is the occupancy state of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
	RoomArchived    RoomStatus = "archived"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomReserved, RoomArchived:
		return true
	}
	return false
}

// Room is a rentable room. Archive and reservation metadata are kept in
// flat columns and are only populated while the matching status holds.
type Room struct {
	ID           int64           `gorm:"primaryKey"`
	RoomNumber   string          `gorm:"uniqueIndex;size:32;not null"`
	RoomName     string          `gorm:"size:128"`
	Block        string          `gorm:"size:16;index"`
	Floor        int             `gorm:"index"`
	MonthlyPrice decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status       RoomStatus      `gorm:"size:16;index;not null"`
	IsArchived   bool            `gorm:"not null;default:false"`

	ArchivedAt     *time.Time
	ArchivedReason string `gorm:"size:255"`

	ReservedAt     *time.Time
	ReservedUntil  *time.Time
	ReservedBy     string `gorm:"size:128"`
	ReservedReason string `gorm:"size:255"`

	// Version is bumped on every save and checked by conditional updates.
	Version   int64 `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArchiveInfo is present only while a room is archived.
type ArchiveInfo struct {
	ArchivedAt     time.Time `json:"archived_at"`
	ArchivedReason string    `json:"archived_reason,omitempty"`
}

// ReservationInfo is present only while a room is reserved.
type ReservationInfo struct {
	ReservedAt     time.Time `json:"reserved_at"`
	ReservedUntil  time.Time `json:"reserved_until"`
	ReservedBy     string    `json:"reserved_by"`
	ReservedReason string    `json:"reserved_reason,omitempty"`
}

// ExpiresInMinutes is the number of minutes left before expiry, rounded up
// so that a live reservation never reports zero. Zero or negative means the
// reservation has lapsed.
func (ri ReservationInfo) ExpiresInMinutes(now time.Time) int {
	d := ri.ReservedUntil.Sub(now)
	if d <= 0 {
		return int(d / time.Minute)
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// ArchiveInfo returns the archive metadata, or nil when the room is not archived.
func (r *Room) ArchiveInfo() *ArchiveInfo {
	if r.Status != RoomArchived || r.ArchivedAt == nil {
		return nil
	}
	return &ArchiveInfo{ArchivedAt: *r.ArchivedAt, ArchivedReason: r.ArchivedReason}
}

// ReservationInfo returns the reservation metadata, or nil when the room is not reserved.
func (r *Room) ReservationInfo() *ReservationInfo {
	if r.Status != RoomReserved || r.ReservedAt == nil || r.ReservedUntil == nil {
		return nil
	}
	return &ReservationInfo{
		ReservedAt:     *r.ReservedAt,
		ReservedUntil:  *r.ReservedUntil,
		ReservedBy:     r.ReservedBy,
		ReservedReason: r.ReservedReason,
	}
}

// SetReservation fills the reservation columns.
func (r *Room) SetReservation(ri ReservationInfo) {
	at, until := ri.ReservedAt, ri.ReservedUntil
	r.ReservedAt = &at
	r.ReservedUntil = &until
	r.ReservedBy = ri.ReservedBy
	r.ReservedReason = ri.ReservedReason
}

// ClearReservation empties the reservation columns.
func (r *Room) ClearReservation() {
	r.ReservedAt = nil
	r.ReservedUntil = nil
	r.ReservedBy = ""
	r.ReservedReason = ""
}

// SetArchive fills the archive columns and the is_archived flag.
func (r *Room) SetArchive(ai ArchiveInfo) {
	at := ai.ArchivedAt
	r.ArchivedAt = &at
	r.ArchivedReason = ai.ArchivedReason
	r.IsArchived = true
}

// ClearArchive empties the archive columns and the is_archived flag.
func (r *Room) ClearArchive() {
	r.ArchivedAt = nil
	r.ArchivedReason = ""
	r.IsArchived = false
}
