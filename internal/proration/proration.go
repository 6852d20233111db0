// Package proration holds the date-to-money arithmetic shared by every
// lifecycle transition: daily rates, partial-month amounts, move-out refunds
// and room-transfer rent adjustments.
//
// All amounts are decimal. Intermediate values are never rounded; each
// output field is rounded half away from zero to Calculator.Scale places.
// Remaining days always count the reference day itself:
//
//	remainingDays = daysInMonth - dayOfMonth(ref) + 1
package proration

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Calculator rounds its outputs to Scale decimal places. Scale 0 suits
// amounts kept in minor currency units.
type Calculator struct {
	Scale int32
}

// New returns a Calculator rounding to scale places.
func New(scale int32) Calculator {
	return Calculator{Scale: scale}
}

// Proration is a partial-period charge or refund for one month.
type Proration struct {
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	ReferenceDate time.Time       `json:"reference_date"`
	DaysInMonth   int             `json:"days_in_month"`
	ElapsedDays   int             `json:"elapsed_days"`
	RemainingDays int             `json:"remaining_days"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// Refund is the billing preview returned by a move-out.
type Refund struct {
	Proration     Proration       `json:"proration"`
	ProRataRefund decimal.Decimal `json:"pro_rata_refund"`
	DepositRefund decimal.Decimal `json:"deposit_refund"`
	TotalRefund   decimal.Decimal `json:"total_refund"`
}

// Adjustment is the billing preview returned by a room transfer.
type Adjustment struct {
	OldRent           decimal.Decimal `json:"old_rent"`
	NewRent           decimal.Decimal `json:"new_rent"`
	EffectiveDate     time.Time       `json:"effective_date"`
	DaysInMonth       int             `json:"days_in_month"`
	RemainingDays     int             `json:"remaining_days"`
	RentDifference    decimal.Decimal `json:"rent_difference"`
	DailyRate         decimal.Decimal `json:"daily_rate_difference"`
	ProRataAdjustment decimal.Decimal `json:"pro_rata_adjustment"`
}

// DaysInMonth returns the number of calendar days in ref's month.
func DaysInMonth(ref time.Time) int {
	y, m, _ := ref.Date()
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RemainingDays counts the days from ref through the end of its month,
// ref included.
func RemainingDays(ref time.Time) int {
	return DaysInMonth(ref) - ref.Day() + 1
}

// ElapsedDays counts the days of ref's month before ref.
func ElapsedDays(ref time.Time) int {
	return ref.Day() - 1
}

// DailyRate is monthlyAmount / daysInMonth.
func (c Calculator) DailyRate(monthlyAmount decimal.Decimal, daysInMonth int) decimal.Decimal {
	mustBeBillable(monthlyAmount, daysInMonth)
	return c.round(exactDailyRate(monthlyAmount, daysInMonth))
}

// ProratedAmount charges (or refunds) monthlyAmount for the remaining days
// of ref's month.
func (c Calculator) ProratedAmount(monthlyAmount decimal.Decimal, ref time.Time) Proration {
	days := DaysInMonth(ref)
	mustBeBillable(monthlyAmount, days)

	remaining := RemainingDays(ref)
	return Proration{
		MonthlyAmount: monthlyAmount,
		ReferenceDate: ref,
		DaysInMonth:   days,
		ElapsedDays:   ElapsedDays(ref),
		RemainingDays: remaining,
		DailyRate:     c.round(exactDailyRate(monthlyAmount, days)),
		Amount:        c.round(exactPortion(monthlyAmount, remaining, days)),
	}
}

// MoveOutRefund returns the unused rent of the move-out month plus the
// deposit supplied by the caller.
func (c Calculator) MoveOutRefund(monthlyRent, deposit decimal.Decimal, moveOutDate time.Time) Refund {
	if deposit.IsNegative() {
		panic(fmt.Sprintf("proration: negative deposit %s", deposit))
	}
	p := c.ProratedAmount(monthlyRent, moveOutDate)
	exact := exactPortion(monthlyRent, p.RemainingDays, p.DaysInMonth)
	return Refund{
		Proration:     p,
		ProRataRefund: p.Amount,
		DepositRefund: c.round(deposit),
		TotalRefund:   c.round(exact.Add(deposit)),
	}
}

// TransferRentAdjustment prices the rent change of a transfer for the rest
// of the month. The difference is negative when moving to a cheaper room.
func (c Calculator) TransferRentAdjustment(oldRent, newRent decimal.Decimal, effectiveDate time.Time) Adjustment {
	days := DaysInMonth(effectiveDate)
	mustBeBillable(oldRent, days)
	mustBeBillable(newRent, days)

	diff := newRent.Sub(oldRent)
	remaining := RemainingDays(effectiveDate)
	return Adjustment{
		OldRent:           oldRent,
		NewRent:           newRent,
		EffectiveDate:     effectiveDate,
		DaysInMonth:       days,
		RemainingDays:     remaining,
		RentDifference:    c.round(diff),
		DailyRate:         c.round(exactDailyRate(diff, days)),
		ProRataAdjustment: c.round(exactPortion(diff, remaining, days)),
	}
}

func (c Calculator) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale)
}

func exactDailyRate(amount decimal.Decimal, days int) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(int64(days)))
}

// exactPortion multiplies before dividing so whole-unit results stay exact.
func exactPortion(amount decimal.Decimal, part, days int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(part))).Div(decimal.NewFromInt(int64(days)))
}

func mustBeBillable(amount decimal.Decimal, days int) {
	if days <= 0 {
		panic(fmt.Sprintf("proration: non-positive days in month %d", days))
	}
	if amount.IsNegative() {
		panic(fmt.Sprintf("proration: negative monthly amount %s", amount))
	}
}
