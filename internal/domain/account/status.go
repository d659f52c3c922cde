package account

import "time"

// Resolve computes the live DeletionStatus from a record and the wall clock.
// It is a pure function: callers decide how fresh the record is, and may
// recompute on a timer against a cached record.
func Resolve(record *DeletionRecord, now time.Time) DeletionStatus {
	if record == nil {
		return DeletionStatus{}
	}

	remaining := record.ScheduledForDeletion.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	if days < 0 {
		days = 0
	}

	scheduled := record.ScheduledForDeletion
	return DeletionStatus{
		IsScheduled:   true,
		ScheduledDate: &scheduled,
		RemainingDays: days,
	}
}
