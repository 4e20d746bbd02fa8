package presence

import (
	"sync"
	"time"
)

// dailyCounter counts occurrences and resets at local midnight. Safe
// for concurrent use.
type dailyCounter struct {
	mu       sync.Mutex
	count    int64
	resetDay int // day-of-year of last reset
	loc      *time.Location
}

// newDailyCounter creates a counter using loc for midnight detection.
// If loc is nil, [time.Local] is used.
func newDailyCounter(loc *time.Location) *dailyCounter {
	if loc == nil {
		loc = time.Local
	}
	return &dailyCounter{
		resetDay: time.Now().In(loc).YearDay(),
		loc:      loc,
	}
}

// Inc records one occurrence, resetting first if the local date has
// changed since the last call.
func (d *dailyCounter) Inc() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeReset()
	d.count++
}

// Today returns the count for the current local day.
func (d *dailyCounter) Today() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeReset()
	return d.count
}

// maybeReset zeroes the counter if the local day-of-year has changed.
// Must be called with d.mu held.
func (d *dailyCounter) maybeReset() {
	today := time.Now().In(d.loc).YearDay()
	if today != d.resetDay {
		d.count = 0
		d.resetDay = today
	}
}
