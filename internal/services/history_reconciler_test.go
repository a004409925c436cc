package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReconcileHistory_MergesRealizedAndMissing(t *testing.T) {
	ten := decimal.NewFromInt(10)
	schedule := core.RecurringSchedule{ID: "s1", BaseAmount: ten}
	txs := []core.Transaction{
		{ID: "t2", BaseAmount: ten, TransactedAt: date(2023, time.July, 15), Schedule: &schedule},
		{ID: "t1", BaseAmount: ten, TransactedAt: date(2023, time.June, 15), Schedule: &schedule},
	}

	got := ReconcileHistory(schedule, txs, []time.Time{date(2023, time.August, 15)})

	want := []core.ReconciledOccurrence{
		{Amount: ten, Status: core.StatusComplete, OccurrenceDate: date(2023, time.June, 15)},
		{Amount: ten, Status: core.StatusComplete, OccurrenceDate: date(2023, time.July, 15)},
		{Amount: ten, Status: core.StatusFailed, OccurrenceDate: date(2023, time.August, 15)},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Amount.Equal(want[i].Amount) || got[i].Status != want[i].Status || !got[i].OccurrenceDate.Equal(want[i].OccurrenceDate) {
			t.Errorf("occurrence %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReconcileHistory(t *testing.T) {
	schedule := core.RecurringSchedule{ID: "s1", BaseAmount: decimal.NewFromInt(25)}
	other := core.RecurringSchedule{ID: "s2"}

	tests := []struct {
		name         string
		transactions []core.Transaction
		missing      []time.Time
		wantLen      int
		wantFailed   int
	}{
		{
			name:    "empty inputs",
			wantLen: 0,
		},
		{
			name:       "only missing months",
			missing:    []time.Time{date(2023, time.March, 1), date(2023, time.January, 1)},
			wantLen:    2,
			wantFailed: 2,
		},
		{
			name: "zero dates are dropped",
			transactions: []core.Transaction{
				{ID: "t1", TransactedAt: date(2023, time.January, 1)},
				{ID: "t2"},
			},
			missing:    []time.Time{{}, date(2023, time.February, 1)},
			wantLen:    2,
			wantFailed: 1,
		},
		{
			name: "transactions of another schedule are ignored",
			transactions: []core.Transaction{
				{ID: "t1", TransactedAt: date(2023, time.January, 1), Schedule: &other},
				{ID: "t2", TransactedAt: date(2023, time.February, 1), Schedule: &schedule},
			},
			wantLen: 1,
		},
		{
			name: "month both realized and missing is kept twice",
			transactions: []core.Transaction{
				{ID: "t1", TransactedAt: date(2023, time.January, 1)},
			},
			missing:    []time.Time{date(2023, time.January, 1)},
			wantLen:    2,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileHistory(schedule, tt.transactions, tt.missing)
			if got == nil {
				t.Fatal("ReconcileHistory() returned nil, want empty slice")
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			failed := 0
			for i, o := range got {
				if o.Status == core.StatusFailed {
					failed++
					if !o.Amount.Equal(schedule.BaseAmount) {
						t.Errorf("failed occurrence amount = %s, want %s", o.Amount, schedule.BaseAmount)
					}
				}
				if i > 0 && o.OccurrenceDate.Before(got[i-1].OccurrenceDate) {
					t.Errorf("occurrence %d out of order", i)
				}
			}
			if failed != tt.wantFailed {
				t.Errorf("failed = %d, want %d", failed, tt.wantFailed)
			}
		})
	}
}

func TestReconcileHistory_StableForEqualDates(t *testing.T) {
	schedule := core.RecurringSchedule{ID: "s1", BaseAmount: decimal.NewFromInt(7)}
	txs := []core.Transaction{
		{ID: "t1", BaseAmount: decimal.NewFromInt(1), TransactedAt: date(2023, time.May, 1)},
		{ID: "t2", BaseAmount: decimal.NewFromInt(2), TransactedAt: date(2023, time.May, 1)},
	}

	got := ReconcileHistory(schedule, txs, []time.Time{date(2023, time.May, 1)})

	wantAmounts := []int64{1, 2, 7}
	for i, w := range wantAmounts {
		if !got[i].Amount.Equal(decimal.NewFromInt(w)) {
			t.Errorf("occurrence %d amount = %s, want %d", i, got[i].Amount, w)
		}
	}
}
