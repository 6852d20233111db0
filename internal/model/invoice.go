package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind distinguishes full-month from partial-month charges.
type InvoiceKind string

const (
	InvoiceMonthly  InvoiceKind = "monthly"
	InvoiceProrated InvoiceKind = "prorated"
)

// Invoice is a rent charge for one tenant and one payment month.
// (tenant_ref, payment_month) is unique.
type Invoice struct {
	ID           int64           `gorm:"primaryKey"`
	TenancyID    int64           `gorm:"index;not null"`
	TenantRef    string          `gorm:"size:128;not null;uniqueIndex:idx_invoices_tenant_month"`
	PaymentMonth string          `gorm:"size:7;not null;uniqueIndex:idx_invoices_tenant_month"`
	RoomID       int64           `gorm:"not null"`
	Kind         InvoiceKind     `gorm:"size:16;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	FullAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ProratedFrom *time.Time
	BilledDays   int    `gorm:"not null"`
	DaysInMonth  int    `gorm:"not null"`
	Status       string `gorm:"size:16;not null;default:pending"`
	CreatedAt    time.Time
}
