package services

import (
	"slices"
	"time"

	"fundreport/internal/core"
)

// ReconcileHistory merges the realized transactions of a schedule with the
// months in which an occurrence was expected but never happened.
//
// Realized transactions become Complete occurrences carrying their own base
// amount; missing months become Failed occurrences carrying the schedule's
// base amount. Occurrences without a usable date are dropped. The result is
// ordered by date, earliest first, keeping emission order for equal dates.
// No deduplication is attempted between the two inputs.
func ReconcileHistory(schedule core.RecurringSchedule, transactions []core.Transaction, missingMonths []time.Time) []core.ReconciledOccurrence {
	occurrences := make([]core.ReconciledOccurrence, 0, len(transactions)+len(missingMonths))

	for _, tx := range transactions {
		if belongsToOtherSchedule(tx, schedule) {
			continue
		}
		occurrences = append(occurrences, core.ReconciledOccurrence{
			Amount:         tx.BaseAmount,
			Status:         core.StatusComplete,
			OccurrenceDate: tx.TransactedAt,
		})
	}

	for _, month := range missingMonths {
		occurrences = append(occurrences, core.ReconciledOccurrence{
			Amount:         schedule.BaseAmount,
			Status:         core.StatusFailed,
			OccurrenceDate: month,
		})
	}

	occurrences = slices.DeleteFunc(occurrences, func(o core.ReconciledOccurrence) bool {
		return !isResolvableDate(o.OccurrenceDate)
	})

	slices.SortStableFunc(occurrences, func(a, b core.ReconciledOccurrence) int {
		return a.OccurrenceDate.Compare(b.OccurrenceDate)
	})

	return occurrences
}

// belongsToOtherSchedule is true only for transactions explicitly linked to
// a different schedule; unlinked transactions are taken as the caller's.
func belongsToOtherSchedule(tx core.Transaction, schedule core.RecurringSchedule) bool {
	owner, ok := tx.RecurringSchedule()
	return ok && schedule.ID != "" && owner.ID != schedule.ID
}

func isResolvableDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	year := t.Year()
	return year >= 1 && year <= 9999
}
