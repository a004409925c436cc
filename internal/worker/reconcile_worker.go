// Package worker runs periodic reconciliation of recurring schedules and
// announces missed transfers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fundreport/internal/amqp"
	"fundreport/internal/core"
	"fundreport/internal/log"
	"fundreport/internal/sources"
)

// Publisher sends missed-transfer events.
type Publisher interface {
	PublishMissedTransfer(ctx context.Context, msg *amqp.MissedTransferMessage) error
}

// HistoryReader returns the reconciled timeline of a schedule.
type HistoryReader interface {
	History(ctx context.Context, scheduleID string) ([]core.ReconciledOccurrence, error)
}

// RunStats summarizes one reconciliation pass.
type RunStats struct {
	Schedules int
	Failed    int
	Published int
	Errors    int
}

// ReconcileWorker reconciles every active schedule and reports each Failed
// occurrence once per process lifetime.
type ReconcileWorker struct {
	schedules   sources.ScheduleSource
	history     HistoryReader
	publisher   Publisher
	concurrency int
	clock       core.Clock
	logger      *log.Logger

	mu       sync.Mutex
	reported map[string]struct{}
}

// NewReconcileWorker creates a worker. publisher may be nil, in which case
// missed transfers are only logged.
func NewReconcileWorker(schedules sources.ScheduleSource, history HistoryReader, publisher Publisher, concurrency int, clock core.Clock, logger *log.Logger) *ReconcileWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if clock == nil {
		clock = core.SystemClock(nil)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReconcileWorker{
		schedules:   schedules,
		history:     history,
		publisher:   publisher,
		concurrency: concurrency,
		clock:       clock,
		logger:      logger.WithComponent(log.ComponentWorker),
		reported:    make(map[string]struct{}),
	}
}

// Run reconciles immediately and then on every tick until ctx is done.
func (w *ReconcileWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats, err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Reconciliation pass failed", log.FieldError, err)
		} else if err == nil {
			w.logger.InfoContext(ctx, "Reconciliation pass complete",
				"schedules", stats.Schedules,
				"failed", stats.Failed,
				"published", stats.Published,
				"errors", stats.Errors,
				"next_run", time.Now().Add(interval).Format("15:04:05"))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single reconciliation pass over the active schedules.
// Failures on individual schedules are logged and counted; only listing
// errors and cancellation abort the pass.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (RunStats, error) {
	schedules, err := w.schedules.ListActiveSchedules(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list active schedules: %w", err)
	}

	var (
		statsMu sync.Mutex
		stats   = RunStats{Schedules: len(schedules)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, schedule := range schedules {
		g.Go(func() error {
			failed, published, err := w.reconcileSchedule(gctx, schedule)

			statsMu.Lock()
			stats.Failed += failed
			stats.Published += published
			if err != nil {
				stats.Errors++
			}
			statsMu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				w.logger.WarnContext(gctx, "Schedule reconciliation failed",
					log.FieldScheduleID, schedule.ID,
					log.FieldError, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (w *ReconcileWorker) reconcileSchedule(ctx context.Context, schedule core.RecurringSchedule) (failed, published int, err error) {
	history, err := w.history.History(ctx, schedule.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile schedule %s: %w", schedule.ID, err)
	}

	detectedAt := w.clock()
	for _, occurrence := range history {
		if occurrence.Status != core.StatusFailed {
			continue
		}
		failed++

		msg := amqp.NewMissedTransferMessage(schedule, occurrence, detectedAt)
		key := msg.DedupKey()
		if w.alreadyReported(key) {
			continue
		}

		if w.publisher == nil {
			w.logger.InfoContext(ctx, "Missed transfer",
				log.FieldScheduleID, schedule.ID,
				log.FieldOccurrenceDate, occurrence.OccurrenceDate.Format("2006-01-02"),
				log.FieldAmount, occurrence.Amount.StringFixed(core.AmountPlaces))
			w.markReported(key)
			continue
		}

		if pubErr := w.publisher.PublishMissedTransfer(ctx, msg); pubErr != nil {
			// Left unmarked so the next pass retries it.
			err = errors.Join(err, fmt.Errorf("publish %s: %w", key, pubErr))
			continue
		}
		w.markReported(key)
		published++
	}
	return failed, published, err
}

func (w *ReconcileWorker) alreadyReported(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.reported[key]
	return ok
}

func (w *ReconcileWorker) markReported(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reported[key] = struct{}{}
}
