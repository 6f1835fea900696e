package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/config"
)

// Throttle limits how many generations one session may start within a
// sliding time window.
type Throttle struct {
	mu      sync.Mutex
	enabled bool
	max     int
	window  time.Duration
	started []time.Time // Start times inside the window, oldest first
	now     func() time.Time
}

// NewThrottle creates a throttle from the configured limits. Zero values
// fall back to the defaults.
func NewThrottle(cfg config.ThrottleConfig) *Throttle {
	limit := cfg.MaxGenerations
	if limit <= 0 {
		limit = 10
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Throttle{
		enabled: cfg.Enabled,
		max:     limit,
		window:  window,
		started: make([]time.Time, 0, limit),
		now:     time.Now,
	}
}

// Allow records a generation start if the session is under its limit.
// Otherwise it returns false and how long until the oldest start expires.
func (t *Throttle) Allow() (bool, time.Duration) {
	if !t.enabled {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	if len(t.started) >= t.max {
		return false, t.started[0].Add(t.window).Sub(now)
	}

	t.started = append(t.started, now)
	return true, 0
}

// cleanup drops starts that have left the window
func (t *Throttle) cleanup(now time.Time) {
	cutoff := now.Add(-t.window)
	kept := t.started[:0]
	for _, at := range t.started {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.started = kept
}

// Reset clears all tracking data
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = t.started[:0]
}
