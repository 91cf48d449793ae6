package progress

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum time between two throttled renders.
const DefaultInterval = 200 * time.Millisecond

// Throttle limits how often a progress bar is redrawn.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottle returns a throttle that allows one render per interval.
// A non-positive interval uses DefaultInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{interval: interval, now: time.Now}
}

// Allow reports whether at least one interval has elapsed since the last
// allowed render. The first call is always allowed.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
