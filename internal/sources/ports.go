package sources

import (
	"context"

	"fundreport/internal/core"
)

// Ports for inbound data. The core routines never call these; services load
// through them and hand plain values to the routines.
type (
	ScheduleSource interface {
		// GetSchedule returns core.ErrScheduleNotFound for unknown ids.
		GetSchedule(ctx context.Context, id string) (core.RecurringSchedule, error)
		ListActiveSchedules(ctx context.Context) ([]core.RecurringSchedule, error)
	}

	TransactionSource interface {
		// GetTransaction returns core.ErrTransactionNotFound for unknown ids.
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListScheduleTransactions returns the realized and pending
		// transactions of a schedule, in no particular order.
		ListScheduleTransactions(ctx context.Context, scheduleID string) ([]core.Transaction, error)
	}

	// ReportSource provides the category tree of a reporting year.
	ReportSource interface {
		ReadCategoryTree(ctx context.Context, year int) ([]core.FundReport, error)
	}

	Backend interface {
		ScheduleSource
		TransactionSource
		ReportSource
	}
)
