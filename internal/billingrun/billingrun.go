// Package billingrun issues the monthly rent invoices on a schedule.
package billingrun

import (
	"context"
	"time"

	"go.uber.org/zap"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/roomstate"
)

// Summary counts the outcome of one pass over the active tenancies.
type Summary struct {
	Month   string `json:"month"`
	Issued  int    `json:"issued"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Runner bills every active tenancy once per month.
type Runner struct {
	cfg   config.MonthlyRunConfig
	svc   *lifecycle.Service
	clock clock.Clock
	log   *zap.Logger

	lastMonth string
}

// NewRunner creates a Runner.
func NewRunner(cfg config.MonthlyRunConfig, svc *lifecycle.Service, clk clock.Clock, log *zap.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Runner{cfg: cfg, svc: svc, clock: clk, log: log}
}

// Run wakes every configured interval and, from the configured day of the
// month on, performs the month's pass until it completes without failures.
func (r *Runner) Run(ctx context.Context) {
	if !r.cfg.Enabled {
		r.log.Info("monthly rent run is disabled, not starting")
		return
	}
	r.log.Info("starting monthly rent run", zap.Int("day", r.cfg.Day), zap.Duration("interval", r.cfg.Interval))

	r.tick(ctx)

	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("monthly rent run shutting down")
			return
		case <-timer.C:
			r.tick(ctx)
			timer.Reset(r.cfg.Interval)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	now := r.clock.Now()
	month := now.Format(lifecycle.MonthLayout)
	if now.Day() < r.cfg.Day || month == r.lastMonth {
		return
	}
	sum, err := r.RunOnce(ctx, month)
	if err != nil {
		r.log.Error("monthly rent run failed", zap.String("month", month), zap.Error(err))
		return
	}
	if sum.Failed == 0 {
		r.lastMonth = month
	}
}

// RunOnce issues the invoices of month for every active tenancy. Tenancies
// that started inside the month are billed from their start date; those
// already invoiced are skipped. Only a failure to list tenancies or a
// cancelled context aborts the pass.
func (r *Runner) RunOnce(ctx context.Context, month string) (Summary, error) {
	sum := Summary{Month: month}
	first, err := lifecycle.ParseMonth(month)
	if err != nil {
		return sum, err
	}
	last := first.AddDate(0, 1, -1)

	tenancies, err := r.svc.ActiveTenancies(ctx)
	if err != nil {
		return sum, err
	}
	r.log.Info("executing monthly rent run", zap.String("month", month), zap.Int("tenancies", len(tenancies)))

	for _, t := range tenancies {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		start := clock.Date(t.StartDate)
		if start.After(last) {
			continue
		}
		req := lifecycle.InvoiceRequest{
			TenancyID:    t.ID,
			Actor:        roomstate.Actor{ID: lifecycle.SystemActor},
			PaymentMonth: month,
		}
		if start.After(first) {
			req.ProrateFrom = &start
		}

		res, err := r.svc.GenerateInterimInvoice(ctx, req)
		switch {
		case err == nil:
			sum.Issued++
			r.log.Debug("invoice issued", zap.String("tenant_ref", t.TenantRef), zap.String("amount", res.Invoice.Amount.String()))
		case apperr.HasCode(err, apperr.DuplicateInvoice):
			sum.Skipped++
		case apperr.KindOf(err) != "":
			// The tenancy changed state since it was listed.
			sum.Skipped++
			r.log.Debug("tenancy not billable", zap.Int64("tenancy_id", t.ID), zap.Error(err))
		default:
			sum.Failed++
			r.log.Warn("failed to issue invoice", zap.Int64("tenancy_id", t.ID), zap.Error(err))
		}
	}

	r.log.Info("monthly rent run finished",
		zap.String("month", month),
		zap.Int("issued", sum.Issued),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}
