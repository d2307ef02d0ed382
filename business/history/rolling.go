package history

import "time"

// RespectsRollingConstraint reports whether the remaining budget under cap is
// not yet exhausted by timestamps inside the trailing window. Timestamps must
// be time-ordered, most recent last. A cap of 0 means the limit is already
// reached. The scan walks newest to oldest and stops at the first timestamp
// older than the window, so cost is proportional to the number of
// recent-enough entries, not the full history.
func RespectsRollingConstraint(timestamps []time.Time, window time.Duration, cap int, now time.Time) bool {
	if cap <= 0 {
		return false
	}

	cutoff := now.Add(-window)
	remaining := cap

	for i := len(timestamps) - 1; i >= 0; i-- {
		if timestamps[i].Before(cutoff) {
			return true
		}

		remaining--
		if remaining == 0 {
			return false
		}
	}

	return true
}

// HasEventWithin reports whether any timestamp falls inside the trailing
// window. Equivalent to a cap=1 rolling constraint violation.
func HasEventWithin(timestamps []time.Time, window time.Duration, now time.Time) bool {
	return !RespectsRollingConstraint(timestamps, window, 1, now)
}
