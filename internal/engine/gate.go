package engine

import (
	"sync"
	"time"

	"github.com/roach88/gsync/internal/repo"
)

// Gate is the session-wide single-flight guard: at most one commit
// cycle runs at a time, across all repositories. It is an explicit
// try-lock rather than a mutex because a blocked requester must not
// wait - it schedules a retry instead.
type Gate struct {
	mu   sync.Mutex
	held bool
}

// TryAcquire takes the gate if it is free. Returns false when a cycle
// is already in flight.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

// Release frees the gate. Must be called exactly once per successful
// TryAcquire, on every exit path of the cycle.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}

// Held reports whether a cycle is in flight.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Retry is the single-slot pending follow-up: when the gate blocks a
// commit request, the target repository is parked here and re-requested
// after the debounce delay. Scheduling replaces any pending retry, so
// at most one follow-up is ever in flight and the most recent target
// wins.
type Retry struct {
	mu     sync.Mutex
	delay  time.Duration
	fire   func(*repo.Repository)
	timer  *time.Timer
	target *repo.Repository
	gen    uint64 // invalidates callbacks from replaced timers
}

// NewRetry creates a retry slot firing fn after delay.
func NewRetry(delay time.Duration, fn func(*repo.Repository)) *Retry {
	return &Retry{delay: delay, fire: fn}
}

// Schedule parks r as the pending retry target, cancelling and
// replacing any previously scheduled retry.
func (r *Retry) Schedule(target *repo.Repository) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	r.target = target

	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		// A Stop or a newer Schedule may have raced with this timer
		// already firing; the generation check makes the stale
		// callback a no-op.
		if gen != r.gen || r.target == nil {
			r.mu.Unlock()
			return
		}
		t := r.target
		r.target = nil
		r.timer = nil
		r.mu.Unlock()

		r.fire(t)
	})
}

// Stop cancels any pending retry.
func (r *Retry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.target = nil
	r.gen++
}

// Pending returns the currently parked target, nil when none.
func (r *Retry) Pending() *repo.Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}
