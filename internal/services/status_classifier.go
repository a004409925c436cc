// Package services provides the transfer and report business logic.
//
// The classification, reconciliation and bifurcation routines in this
// package are pure: they read only their arguments and build fresh results,
// so they are safe to call concurrently. Orchestrators (TransferService,
// ReportService) load inputs from the sources and feed them through.
package services

import "fundreport/internal/core"

// ClassifyTransfer returns the lifecycle status of the transfer tx.
//
// One-time transfers are Complete. Recurring transfers are Ongoing while
// their schedule is open-ended or ends at or after the end of the current
// day, and Ended otherwise. The clock is read at most once.
func ClassifyTransfer(tx core.Transaction, clock core.Clock) core.TransferStatus {
	schedule, ok := tx.RecurringSchedule()
	if !ok {
		return core.StatusComplete
	}
	if schedule.IsOpenEnded() {
		return core.StatusOngoing
	}

	if clock == nil {
		clock = core.SystemClock(nil)
	}
	cutoff := core.EndOfDay(clock())
	if schedule.RecurringEnd.Before(cutoff) {
		return core.StatusEnded
	}
	return core.StatusOngoing
}
