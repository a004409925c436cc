package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
	"fundreport/internal/sources/memory"
)

func newTransferFixture(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ten := decimal.NewFromInt(10)

	schedules := []core.RecurringSchedule{
		{ID: "rent", BaseAmount: ten, RecurringStart: date(2023, time.June, 15), Active: true},
		{ID: "gym", BaseAmount: ten, RecurringStart: date(2023, time.January, 1), RecurringEnd: date(2023, time.March, 1)},
	}
	for _, s := range schedules {
		if err := store.AddSchedule(s); err != nil {
			t.Fatalf("AddSchedule: %v", err)
		}
	}

	txs := []struct {
		tx         core.Transaction
		scheduleID string
	}{
		{core.Transaction{ID: "t1", BaseAmount: ten, TransactedAt: date(2023, time.June, 15)}, "rent"},
		{core.Transaction{ID: "t2", BaseAmount: ten, TransactedAt: date(2023, time.July, 15)}, "rent"},
		{core.Transaction{ID: "t3", BaseAmount: ten, TransactedAt: date(2023, time.September, 15), Status: core.StatusPending}, "rent"},
		{core.Transaction{ID: "t4", BaseAmount: ten, TransactedAt: date(2023, time.January, 2)}, "gym"},
		{core.Transaction{ID: "t5", BaseAmount: decimal.NewFromInt(3), TransactedAt: date(2023, time.May, 5)}, ""},
	}
	for _, tt := range txs {
		if err := store.AddTransaction(tt.tx, tt.scheduleID); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}
	return store
}

func TestTransferService_Status(t *testing.T) {
	store := newTransferFixture(t)
	svc := NewTransferService(store, store, core.FixedClock(date(2023, time.August, 20)))

	tests := []struct {
		id      string
		want    core.TransferStatus
		wantErr error
	}{
		{"t1", core.StatusOngoing, nil},
		{"t3", core.StatusPending, nil},
		{"t4", core.StatusEnded, nil},
		{"t5", core.StatusComplete, nil},
		{"missing", "", core.ErrTransactionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := svc.Status(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Status() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransferService_History(t *testing.T) {
	store := newTransferFixture(t)
	svc := NewTransferService(store, store, core.FixedClock(date(2023, time.September, 20)))

	history, err := svc.History(context.Background(), "rent")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	want := []struct {
		at     time.Time
		status core.TransferStatus
	}{
		{date(2023, time.June, 15), core.StatusComplete},
		{date(2023, time.July, 15), core.StatusComplete},
		{date(2023, time.August, 15), core.StatusFailed},
		{date(2023, time.September, 15), core.StatusFailed},
	}
	if len(history) != len(want) {
		t.Fatalf("History() = %+v, want %d occurrences", history, len(want))
	}
	for i, w := range want {
		if !history[i].OccurrenceDate.Equal(w.at) || history[i].Status != w.status {
			t.Errorf("occurrence %d = %v %s, want %v %s", i, history[i].OccurrenceDate, history[i].Status, w.at, w.status)
		}
	}

	summary := Summarize(history)
	if summary.Completed != 2 || summary.Failed != 2 {
		t.Errorf("summary counts = %d/%d, want 2/2", summary.Completed, summary.Failed)
	}
	if !summary.MissedAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("missed amount = %s, want 20", summary.MissedAmount)
	}

	if _, err := svc.History(context.Background(), "nope"); !errors.Is(err, core.ErrScheduleNotFound) {
		t.Errorf("History(nope) error = %v, want ErrScheduleNotFound", err)
	}
}
