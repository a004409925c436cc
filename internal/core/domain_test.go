package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionKind(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want TransferKind
	}{
		{"no schedule", Transaction{ID: "t1"}, OneTime},
		{"schedule without id", Transaction{ID: "t1", Schedule: &RecurringSchedule{}}, OneTime},
		{"schedule with id", Transaction{ID: "t1", Schedule: &RecurringSchedule{ID: "s1"}}, Recurring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
			_, ok := tt.tx.RecurringSchedule()
			if ok != (tt.want == Recurring) {
				t.Errorf("RecurringSchedule() ok = %v, want %v", ok, tt.want == Recurring)
			}
		})
	}
}

func TestRecurringScheduleValidate(t *testing.T) {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		s  RecurringSchedule
		ok bool
	}{
		{RecurringSchedule{ID: "s1", BaseAmount: decimal.NewFromInt(10), RecurringStart: start}, true},
		{RecurringSchedule{ID: "s1", RecurringStart: start, RecurringEnd: start}, true},
		{RecurringSchedule{ID: " "}, false},
		{RecurringSchedule{ID: "s1", BaseAmount: decimal.NewFromInt(-1)}, false},
		{RecurringSchedule{ID: "s1", RecurringStart: start, RecurringEnd: start.AddDate(0, 0, -1)}, false},
	}
	for i, tc := range cases {
		err := tc.s.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := (Transaction{ID: "t1", Status: StatusPending}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Transaction{ID: ""}).Validate(); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if err := (Transaction{ID: "t1", Status: "DONE"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestEndOfDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 2, 29, 8, 30, 0, 0, loc)
	want := time.Date(2024, 2, 29, 23, 59, 59, 999000000, loc)
	if got := EndOfDay(in); !got.Equal(want) {
		t.Fatalf("EndOfDay() = %v, want %v", got, want)
	}
}

func TestNormalizeMonthly(t *testing.T) {
	short := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)}
	got := NormalizeMonthly(short)
	if len(got) != MonthsPerReport {
		t.Fatalf("len = %d, want %d", len(got), MonthsPerReport)
	}
	if !got[1].Equal(decimal.NewFromInt(2)) || !got[11].IsZero() {
		t.Fatalf("unexpected series %v", got)
	}

	long := make([]decimal.Decimal, 15)
	if got := NormalizeMonthly(long); len(got) != MonthsPerReport {
		t.Fatalf("len = %d, want %d", len(got), MonthsPerReport)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2024-03-05T10:00:00Z", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
		{"date only", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"space separated", "2024-03-05 08:15:00", time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "next tuesday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	if FormatTimestamp(time.Time{}) != "" {
		t.Error("zero time should format as empty string")
	}
	in := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	if got := ParseTimestamp(FormatTimestamp(in)); !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}
