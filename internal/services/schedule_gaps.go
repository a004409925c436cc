package services

import (
	"time"

	"fundreport/internal/core"
)

type monthKey struct {
	year  int
	month time.Month
}

// MissingMonths lists the monthly due dates of schedule, up to the earlier
// of its end and now, for which no transaction was realized in the same
// calendar month.
//
// The due day is the start date's day of month, clamped to the last day of
// shorter months (a schedule started on the 31st is due on Feb 28/29).
func MissingMonths(schedule core.RecurringSchedule, transactions []core.Transaction, now time.Time) []time.Time {
	if schedule.RecurringStart.IsZero() {
		return nil
	}

	start := schedule.RecurringStart
	loc := start.Location()

	last := now
	if !schedule.RecurringEnd.IsZero() && schedule.RecurringEnd.Before(last) {
		last = schedule.RecurringEnd
	}

	realized := make(map[monthKey]struct{}, len(transactions))
	for _, tx := range transactions {
		if tx.TransactedAt.IsZero() {
			continue
		}
		at := tx.TransactedAt.In(loc)
		realized[monthKey{at.Year(), at.Month()}] = struct{}{}
	}

	var missing []time.Time
	targetDay := start.Day()
	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc); ; month = month.AddDate(0, 1, 0) {
		day := min(targetDay, core.DaysIn(month.Year(), month.Month()))
		due := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, loc)
		if due.After(last) {
			break
		}
		if _, ok := realized[monthKey{due.Year(), due.Month()}]; !ok {
			missing = append(missing, due)
		}
	}

	return missing
}
