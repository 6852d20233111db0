package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TenancyStatus is the contract state of a tenancy. moved_out is terminal.
type TenancyStatus string

const (
	TenancyActive    TenancyStatus = "active"
	TenancySuspended TenancyStatus = "suspended"
	TenancyMovedOut  TenancyStatus = "moved_out"
)

// Tenancy binds a renter to a room for a period.
type Tenancy struct {
	ID           int64           `gorm:"primaryKey"`
	RoomID       int64           `gorm:"index;not null"`
	TenantRef    string          `gorm:"size:128;index;not null"`
	MonthlyRent  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Deposit      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	StartDate    time.Time       `gorm:"not null"`
	EndDate      *time.Time
	Status       TenancyStatus `gorm:"size:16;index;not null"`
	StatusReason string        `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HoldsRoom reports whether the tenancy keeps its room occupied.
// Suspension pauses the contract but does not release the room.
func (t *Tenancy) HoldsRoom() bool {
	return t.Status == TenancyActive || t.Status == TenancySuspended
}
