package availability

import "sync"

// Counts is the per-event attendee tally.  It is owned by a Tracker and
// handed to the submitter; HTTP handlers read it concurrently, so access is
// guarded.
type Counts struct {
	mu     sync.RWMutex
	values []int
}

// NewCounts returns a zeroed tally for size events.
func NewCounts(size int) *Counts {
	if size < 0 {
		size = 0
	}
	return &Counts{values: make([]int, size)}
}

// Len returns the number of events tracked.
func (c *Counts) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Get returns the count for event i, or 0 when i is out of range.
func (c *Counts) Get(i int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.values) {
		return 0
	}
	return c.values[i]
}

// Snapshot returns a copy of all counts.
func (c *Counts) Snapshot() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, len(c.values))
	copy(out, c.values)
	return out
}

// Replace overwrites the tally.  Extra values are dropped and missing ones
// are zero.
func (c *Counts) Replace(values []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.values {
		c.values[i] = 0
		if i < len(values) {
			c.values[i] = values[i]
		}
	}
}

// Increment adds one to each listed event.  Out-of-range indices are
// ignored.
func (c *Counts) Increment(indices []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range indices {
		if i >= 0 && i < len(c.values) {
			c.values[i]++
		}
	}
}

// Saturate raises the count for event i to at least seats.  It is used when
// the store reports an event full that the local snapshot still showed open.
func (c *Counts) Saturate(i, seats int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= 0 && i < len(c.values) && c.values[i] < seats {
		c.values[i] = seats
	}
}
