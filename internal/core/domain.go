package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  TransferStatus = "PENDING"
	StatusOngoing  TransferStatus = "ONGOING"
	StatusComplete TransferStatus = "COMPLETE"
	StatusEnded    TransferStatus = "ENDED"
	StatusFailed   TransferStatus = "FAILED"
)

const (
	OneTime TransferKind = iota
	Recurring
)

type (
	TransferStatus string

	// TransferKind tells one-time transfers apart from transfers that belong
	// to a recurring schedule.
	TransferKind int

	RecurringSchedule struct {
		ID             string // empty when the owning transfer is one-time
		Description    string
		BaseAmount     decimal.Decimal
		RecurringStart time.Time // zero when unknown
		RecurringEnd   time.Time // zero when open-ended
		Active         bool
	}

	Transaction struct {
		ID           string
		Amount       decimal.Decimal
		BaseAmount   decimal.Decimal
		TransactedAt time.Time
		// Status is only populated by sources for transfers that have not
		// executed yet (StatusPending).
		Status   TransferStatus
		Schedule *RecurringSchedule
	}

	// ReconciledOccurrence is one realized or missed instance of a schedule.
	ReconciledOccurrence struct {
		Amount         decimal.Decimal `json:"amount"`
		Status         TransferStatus  `json:"status"`
		OccurrenceDate time.Time       `json:"occurrenceDate"`
	}
)

var (
	ErrScheduleNotFound    = errors.New("recurring schedule not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidYear         = errors.New("invalid year")
	ErrEmptyID             = errors.New("empty id")
)

func (s TransferStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusComplete, StatusEnded, StatusFailed:
		return true
	default:
		return false
	}
}

func (s TransferStatus) String() string {
	return string(s)
}

func (k TransferKind) String() string {
	if k == Recurring {
		return "recurring"
	}
	return "one-time"
}

// Kind resolves the transfer variant once: a transaction is recurring only
// when it references a schedule carrying an id.
func (t Transaction) Kind() TransferKind {
	if t.Schedule == nil || t.Schedule.ID == "" {
		return OneTime
	}
	return Recurring
}

// RecurringSchedule returns the owning schedule for recurring transfers.
func (t Transaction) RecurringSchedule() (RecurringSchedule, bool) {
	if t.Kind() != Recurring {
		return RecurringSchedule{}, false
	}
	return *t.Schedule, true
}

// IsOpenEnded reports whether the schedule has no end date.
func (s RecurringSchedule) IsOpenEnded() bool {
	return s.RecurringEnd.IsZero()
}

func (s RecurringSchedule) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if s.BaseAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !s.RecurringStart.IsZero() && !s.RecurringEnd.IsZero() && s.RecurringEnd.Before(s.RecurringStart) {
		return errors.New("recurring end must not be before recurring start")
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.Status != "" && !t.Status.IsValid() {
		return errors.New("invalid status: " + string(t.Status))
	}
	return nil
}
