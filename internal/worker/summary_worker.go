// Package worker keeps exported monthly summaries in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	blog "budgeteer/internal/log"
	"budgeteer/internal/ports"
)

// Summarizer computes monthly summaries. The worker invalidates before each
// computation so a cache shared with nothing else never serves stale data.
type Summarizer interface {
	MonthlySummary(ctx context.Context, ownerID string, year, month int) (core.MonthlySummary, error)
	Invalidate(ownerID string, months ...core.YearMonth)
	InvalidateOwner(ownerID string)
}

const defaultConcurrency = 4

// SummaryWorker recomputes summaries for changed months and writes them out.
type SummaryWorker struct {
	summaries   Summarizer
	users       ports.UserStore
	writer      ports.SummaryWriter
	concurrency int
	now         func() time.Time
}

func NewSummaryWorker(summaries Summarizer, users ports.UserStore, writer ports.SummaryWriter) *SummaryWorker {
	return &SummaryWorker{
		summaries:   summaries,
		users:       users,
		writer:      writer,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

// HandleLedgerChanged exports every month named by msg. A message without
// months, as sent for budget changes, exports the current month.
func (w *SummaryWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	months := msg.Months
	if len(months) == 0 {
		w.summaries.InvalidateOwner(msg.OwnerID)
		months = []core.YearMonth{w.currentMonth()}
	} else {
		w.summaries.Invalidate(msg.OwnerID, months...)
	}

	slog.InfoContext(ctx, "Processing ledger change",
		blog.FieldComponent, blog.ComponentWorker,
		blog.FieldOwnerID, msg.OwnerID,
		blog.FieldReason, msg.Reason,
		blog.FieldCount, len(months))

	var errs []error
	for _, ym := range months {
		if err := w.export(ctx, msg.OwnerID, ym); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshCurrentMonth re-exports the current month of every user. It covers
// events lost while the worker or broker was down.
func (w *SummaryWorker) RefreshCurrentMonth(ctx context.Context) error {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	ym := w.currentMonth()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, u := range users {
		g.Go(func() error {
			w.summaries.Invalidate(u.ID, ym)
			return w.export(gctx, u.ID, ym)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Periodic summary refresh completed",
		blog.FieldComponent, blog.ComponentWorker,
		blog.FieldMonth, ym.String(),
		blog.FieldCount, len(users))
	return nil
}

// Run refreshes every interval until ctx is done. Failures are logged and
// retried on the next tick.
func (w *SummaryWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.RefreshCurrentMonth(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Startup summary refresh failed", blog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.RefreshCurrentMonth(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic summary refresh failed", blog.FieldError, err)
			}
		}
	}
}

func (w *SummaryWorker) export(ctx context.Context, ownerID string, ym core.YearMonth) error {
	s, err := w.summaries.MonthlySummary(ctx, ownerID, ym.Year, ym.Month)
	if err != nil {
		return fmt.Errorf("summarize %s for %s: %w", ym, ownerID, err)
	}
	if err := w.writer.WriteSummary(ctx, ownerID, s); err != nil {
		return fmt.Errorf("write summary %s for %s: %w", ym, ownerID, err)
	}
	slog.DebugContext(ctx, "Summary exported",
		blog.FieldComponent, blog.ComponentWorker,
		blog.FieldOwnerID, ownerID,
		blog.FieldMonth, ym.String())
	return nil
}

func (w *SummaryWorker) currentMonth() core.YearMonth {
	t := w.now().UTC()
	return core.YearMonth{Year: t.Year(), Month: int(t.Month())}
}
