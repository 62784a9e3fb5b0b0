package app

import (
	"sync"
	"time"
)

// Refresher tracks the background refresh cycle: a boolean in-flight
// guard so ticks never overlap an active fetch, and a consecutive-
// failure counter the shell uses to pause auto-refresh.
type Refresher struct {
	mu         sync.Mutex
	interval   time.Duration
	pauseAfter int
	inFlight   bool
	failures   int
}

// NewRefresher constructs a new value for this package. A pauseAfter
// of zero never pauses.
func NewRefresher(interval time.Duration, pauseAfter int) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{interval: interval, pauseAfter: pauseAfter}
}

// Interval returns the refresh period.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Begin claims the refresh slot. It returns false while a refresh is
// already in flight or auto-refresh is paused, in which case the tick
// is skipped.
func (r *Refresher) Begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight || r.paused() {
		return false
	}
	r.inFlight = true
	return true
}

// Finish releases the slot and updates the failure streak.
func (r *Refresher) Finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if err != nil {
		r.failures++
		return
	}
	r.failures = 0
}

// Failures returns the current consecutive-failure count.
func (r *Refresher) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Paused reports whether the failure streak reached the pause
// threshold.
func (r *Refresher) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused()
}

// Resume clears the failure streak after a manual refresh request.
func (r *Refresher) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
}

// paused is the lock-free check. Callers hold the lock.
func (r *Refresher) paused() bool {
	return r.pauseAfter > 0 && r.failures >= r.pauseAfter
}
