package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

const (
	scheduleColumns    = `id, description, base_amount, recurring_start, recurring_end, active`
	transactionColumns = `t.id, t.amount, t.base_amount, t.transacted_at, t.status, t.schedule_id,
		s.id, s.description, s.base_amount, s.recurring_start, s.recurring_end, s.active`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// SaveSchedule inserts or replaces a recurring schedule.
func (r *SQLiteRepository) SaveSchedule(ctx context.Context, schedule core.RecurringSchedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("validate schedule %q: %w", schedule.ID, err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			base_amount = excluded.base_amount,
			recurring_start = excluded.recurring_start,
			recurring_end = excluded.recurring_end,
			active = excluded.active`,
		schedule.ID,
		schedule.Description,
		schedule.BaseAmount,
		core.FormatTimestamp(schedule.RecurringStart),
		core.FormatTimestamp(schedule.RecurringEnd),
		schedule.Active,
	)
	if err != nil {
		return fmt.Errorf("save schedule %q: %w", schedule.ID, err)
	}

	slog.DebugContext(ctx, "Schedule saved", "component", "storage", "schedule_id", schedule.ID)
	return nil
}

// SaveTransaction inserts or replaces a transaction. scheduleID is empty for
// one-time transfers.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx core.Transaction, scheduleID string) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction %q: %w", tx.ID, err)
	}

	var link sql.NullString
	if scheduleID != "" {
		link = sql.NullString{String: scheduleID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, schedule_id, amount, base_amount, transacted_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schedule_id = excluded.schedule_id,
			amount = excluded.amount,
			base_amount = excluded.base_amount,
			transacted_at = excluded.transacted_at,
			status = excluded.status`,
		tx.ID,
		link,
		tx.Amount,
		tx.BaseAmount,
		core.FormatTimestamp(tx.TransactedAt),
		string(tx.Status),
	)
	if err != nil {
		return fmt.Errorf("save transaction %q: %w", tx.ID, err)
	}

	slog.DebugContext(ctx, "Transaction saved", "component", "storage", "transaction_id", tx.ID, "schedule_id", scheduleID)
	return nil
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, id string) (core.RecurringSchedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM recurring_schedules WHERE id = ?`, id)
	schedule, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringSchedule{}, core.ErrScheduleNotFound
	}
	if err != nil {
		return core.RecurringSchedule{}, fmt.Errorf("get schedule %q: %w", id, err)
	}
	return schedule, nil
}

func (r *SQLiteRepository) ListActiveSchedules(ctx context.Context) ([]core.RecurringSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM recurring_schedules WHERE active = 1 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN recurring_schedules s ON s.id = t.schedule_id
		WHERE t.id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %q: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListScheduleTransactions(ctx context.Context, scheduleID string) ([]core.Transaction, error) {
	if scheduleID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN recurring_schedules s ON s.id = t.schedule_id
		WHERE t.schedule_id = ?
		ORDER BY t.rowid`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of schedule %q: %w", scheduleID, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanSchedule(row rowScanner) (core.RecurringSchedule, error) {
	var (
		schedule   core.RecurringSchedule
		start, end string
	)
	if err := row.Scan(&schedule.ID, &schedule.Description, &schedule.BaseAmount, &start, &end, &schedule.Active); err != nil {
		return core.RecurringSchedule{}, err
	}
	schedule.RecurringStart = core.ParseTimestamp(start)
	schedule.RecurringEnd = core.ParseTimestamp(end)
	return schedule, nil
}

// scanTransaction reads a transaction joined with its schedule. A link to a
// schedule that no longer exists keeps the id so the transfer still reads as
// recurring.
func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx           core.Transaction
		transactedAt string
		status       string
		linkID       sql.NullString
		sID, sDesc   sql.NullString
		sStart, sEnd sql.NullString
		sBaseAmount  decimal.NullDecimal
		sActive      sql.NullBool
	)
	err := row.Scan(
		&tx.ID, &tx.Amount, &tx.BaseAmount, &transactedAt, &status, &linkID,
		&sID, &sDesc, &sBaseAmount, &sStart, &sEnd, &sActive,
	)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.TransactedAt = core.ParseTimestamp(transactedAt)
	tx.Status = core.TransferStatus(status)

	if linkID.Valid && linkID.String != "" {
		schedule := core.RecurringSchedule{ID: linkID.String}
		if sID.Valid {
			schedule.Description = sDesc.String
			schedule.BaseAmount = sBaseAmount.Decimal
			schedule.RecurringStart = core.ParseTimestamp(sStart.String)
			schedule.RecurringEnd = core.ParseTimestamp(sEnd.String)
			schedule.Active = sActive.Bool
		}
		tx.Schedule = &schedule
	}
	return tx, nil
}
