package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
	"fundreport/internal/sources"
)

// HistorySummary aggregates a reconciled history.
type HistorySummary struct {
	Completed      int             `json:"completed"`
	Failed         int             `json:"failed"`
	RealizedAmount decimal.Decimal `json:"realizedAmount"`
	MissedAmount   decimal.Decimal `json:"missedAmount"`
}

// TransferService loads transfers from the sources and runs the status and
// reconciliation routines over them.
type TransferService struct {
	schedules    sources.ScheduleSource
	transactions sources.TransactionSource
	clock        core.Clock
}

func NewTransferService(schedules sources.ScheduleSource, transactions sources.TransactionSource, clock core.Clock) *TransferService {
	if clock == nil {
		clock = core.SystemClock(nil)
	}
	return &TransferService{
		schedules:    schedules,
		transactions: transactions,
		clock:        clock,
	}
}

// Status returns the lifecycle status of a transaction. A pending status
// supplied by the source is passed through untouched.
func (s *TransferService) Status(ctx context.Context, transactionID string) (core.TransferStatus, error) {
	tx, err := s.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("get transaction %s: %w", transactionID, err)
	}
	if tx.Status == core.StatusPending {
		return core.StatusPending, nil
	}
	return ClassifyTransfer(tx, s.clock), nil
}

// History returns the reconciled timeline of a schedule.
func (s *TransferService) History(ctx context.Context, scheduleID string) ([]core.ReconciledOccurrence, error) {
	schedule, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", scheduleID, err)
	}

	txs, err := s.transactions.ListScheduleTransactions(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of schedule %s: %w", scheduleID, err)
	}
	realized := realizedOnly(txs)

	missing := MissingMonths(schedule, realized, s.clock())
	history := ReconcileHistory(schedule, realized, missing)

	if dropped := len(realized) + len(missing) - len(history); dropped > 0 {
		slog.DebugContext(ctx, "Dropped occurrences without a usable date",
			"schedule_id", scheduleID,
			"dropped", dropped)
	}

	return history, nil
}

// Summarize counts and sums a reconciled history.
func Summarize(history []core.ReconciledOccurrence) HistorySummary {
	summary := HistorySummary{
		RealizedAmount: decimal.Zero,
		MissedAmount:   decimal.Zero,
	}
	for _, o := range history {
		switch o.Status {
		case core.StatusComplete:
			summary.Completed++
			summary.RealizedAmount = summary.RealizedAmount.Add(o.Amount)
		case core.StatusFailed:
			summary.Failed++
			summary.MissedAmount = summary.MissedAmount.Add(o.Amount)
		}
	}
	return summary
}

// realizedOnly filters out transfers the source marks as not executed yet.
func realizedOnly(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Status == core.StatusPending {
			continue
		}
		out = append(out, tx)
	}
	return out
}
