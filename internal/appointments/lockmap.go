package appointments

import "sync"

// queueLocks serializes bookings that compete for the same queue. A queue is
// identified by site, date, window and practitioner; holding its lock makes
// the read-gap-write sequence in Book and Reschedule atomic per queue.
type queueLocks struct {
	locks sync.Map // queue key -> *sync.Mutex
}

func (q *queueLocks) lockFor(key string) *sync.Mutex {
	lockAny, _ := q.locks.LoadOrStore(key, &sync.Mutex{})
	return lockAny.(*sync.Mutex)
}

// queueKey builds the lock key for a queue. Practitioner is folded in via
// its queue key so assigned and unassigned streams never block each other.
func queueKey(siteID, date, window string, p Practitioner) string {
	return siteID + "|" + date + "|" + window + "|" + p.QueueKey()
}

// windowKey builds the lock key for a whole window across practitioners.
// Reschedule reads every occupant of the target window, so its critical
// section must span the window, not a single practitioner's queue.
func windowKey(siteID, date, window string) string {
	return siteID + "|" + date + "|" + window + "|*"
}
