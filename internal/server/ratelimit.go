package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/config"
)

// RejectionLimiter locks out IPs that keep sending rejected requests. Each
// lockout lasts twice as long as the previous one, up to a maximum.
type RejectionLimiter struct {
	mu              sync.Mutex
	clients         map[string]*rejectionInfo
	maxRejections   int
	lockout         time.Duration
	maxLockout      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

type rejectionInfo struct {
	rejections   int
	lockedUntil  time.Time
	lockoutCount int
}

// NewRejectionLimiter creates a limiter and starts its cleanup goroutine.
// Zero settings fall back to 5 rejections, 30s and 300s.
func NewRejectionLimiter(cfg config.RateLimitConfig) *RejectionLimiter {
	rl := &RejectionLimiter{
		clients:         make(map[string]*rejectionInfo),
		maxRejections:   cfg.MaxRejections,
		lockout:         time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:      time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	if rl.maxRejections == 0 {
		rl.maxRejections = 5
	}
	if rl.lockout == 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout == 0 {
		rl.maxLockout = 300 * time.Second
	}

	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RejectionLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// IsLocked reports whether ip is locked out and for how much longer.
func (rl *RejectionLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.clients[ip]
	if !ok {
		return false, 0
	}
	if now := rl.now(); now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordRejection counts a rejected request from ip. It reports whether ip
// is now locked out and for how long.
func (rl *RejectionLimiter) RecordRejection(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.clients[ip]
	if !ok {
		info = &rejectionInfo{}
		rl.clients[ip] = info
	}

	now := rl.now()
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}

	info.rejections++
	if info.rejections < rl.maxRejections {
		return false, 0
	}

	info.lockoutCount++
	d := rl.lockout
	for i := 1; i < info.lockoutCount && d < rl.maxLockout; i++ {
		d *= 2
	}
	d = min(d, rl.maxLockout)

	info.lockedUntil = now.Add(d)
	info.rejections = 0
	return true, d
}

// RecordAccepted clears the rejection history of ip.
func (rl *RejectionLimiter) RecordAccepted(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, ip)
}

// Rejections returns the rejections counted toward the next lockout of ip.
func (rl *RejectionLimiter) Rejections(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, ok := rl.clients[ip]; ok {
		return info.rejections
	}
	return 0
}

func (rl *RejectionLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup forgets IPs whose lockout ended over ten minutes ago and that
// have no rejections pending.
func (rl *RejectionLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for ip, info := range rl.clients {
		if info.lockedUntil.Before(cutoff) && info.rejections == 0 {
			delete(rl.clients, ip)
		}
	}
}
