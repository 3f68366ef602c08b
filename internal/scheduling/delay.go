package scheduling

// Delayed applies a bulk delay to one queue entry. Entries at or before
// "now" have started and are left untouched; entries that the shift would
// push to or past the window end are skipped, not clipped. The boolean
// reports whether the shift applies.
func Delayed(current, now, delta, windowEnd int) (int, bool) {
	if current <= now {
		return current, false
	}
	shifted := current + delta
	if shifted >= windowEnd {
		return current, false
	}
	return shifted, true
}

// AllowedDelay reports whether the requested increment is one of the
// enumerated choices.
func AllowedDelay(delta int, allowed []int) bool {
	for _, a := range allowed {
		if delta == a {
			return true
		}
	}
	return false
}
