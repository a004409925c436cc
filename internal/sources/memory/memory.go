package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"fundreport/internal/core"
	"fundreport/internal/sources"
)

var _ sources.Backend = (*Store)(nil)

type storedTransaction struct {
	tx         core.Transaction
	scheduleID string
}

// Store is an in-memory Backend, mostly used for local runs and tests.
type Store struct {
	mu            sync.RWMutex
	schedules     map[string]core.RecurringSchedule
	scheduleOrder []string
	transactions  []storedTransaction
	reports       map[int][]core.FundReport
}

func New() *Store {
	return &Store{
		schedules: make(map[string]core.RecurringSchedule),
		reports:   make(map[int][]core.FundReport),
	}
}

// NewFromFile loads a JSON seed. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	seed, err := parseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	s := New()
	if err := s.load(seed); err != nil {
		return nil, err
	}
	return s, nil
}

// AddSchedule stores or replaces a schedule.
func (s *Store) AddSchedule(schedule core.RecurringSchedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[schedule.ID]; !ok {
		s.scheduleOrder = append(s.scheduleOrder, schedule.ID)
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

// AddTransaction stores a transaction linked to scheduleID, which may be
// empty for one-time transfers.
func (s *Store) AddTransaction(tx core.Transaction, scheduleID string) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	tx.Schedule = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, storedTransaction{tx: tx, scheduleID: scheduleID})
	return nil
}

// SetReport replaces the category tree of a year.
func (s *Store) SetReport(year int, funds []core.FundReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[year] = append([]core.FundReport(nil), funds...)
}

func (s *Store) GetSchedule(_ context.Context, id string) (core.RecurringSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[id]
	if !ok {
		return core.RecurringSchedule{}, core.ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *Store) ListActiveSchedules(_ context.Context) ([]core.RecurringSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringSchedule
	for _, id := range s.scheduleOrder {
		if schedule := s.schedules[id]; schedule.Active {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stored := range s.transactions {
		if stored.tx.ID == id {
			return s.resolve(stored), nil
		}
	}
	return core.Transaction{}, core.ErrTransactionNotFound
}

func (s *Store) ListScheduleTransactions(_ context.Context, scheduleID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, stored := range s.transactions {
		if stored.scheduleID == scheduleID && scheduleID != "" {
			out = append(out, s.resolve(stored))
		}
	}
	return out, nil
}

func (s *Store) ReadCategoryTree(_ context.Context, year int) ([]core.FundReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.FundReport(nil), s.reports[year]...), nil
}

// resolve attaches a copy of the owning schedule. Links to unknown schedules
// keep the id so the transfer still reads as recurring.
func (s *Store) resolve(stored storedTransaction) core.Transaction {
	tx := stored.tx
	if stored.scheduleID == "" {
		return tx
	}
	schedule, ok := s.schedules[stored.scheduleID]
	if !ok {
		schedule = core.RecurringSchedule{ID: stored.scheduleID}
	}
	tx.Schedule = &schedule
	return tx
}
