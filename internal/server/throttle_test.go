package server

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/config"
)

func TestThrottleLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewThrottle(config.ThrottleConfig{Enabled: true, MaxGenerations: 3, WindowSeconds: 10})
	th.now = clock.now

	// First 3 generations should be allowed
	for i := 0; i < 3; i++ {
		if ok, _ := th.Allow(); !ok {
			t.Errorf("Generation %d should be allowed", i+1)
		}
		clock.advance(time.Second)
	}

	ok, wait := th.Allow()
	if ok {
		t.Fatal("4th generation should be throttled")
	}
	if wait != 7*time.Second {
		t.Errorf("wait = %v, want 7s", wait)
	}

	// The first start leaves the window
	clock.advance(7 * time.Second)
	if ok, _ := th.Allow(); !ok {
		t.Error("Generation should be allowed once the oldest start expires")
	}
	if ok, _ := th.Allow(); ok {
		t.Error("Window should be full again")
	}
}

func TestThrottleDisabled(t *testing.T) {
	th := NewThrottle(config.ThrottleConfig{Enabled: false, MaxGenerations: 1})
	for i := 0; i < 5; i++ {
		if ok, _ := th.Allow(); !ok {
			t.Fatalf("Generation %d should be allowed when disabled", i+1)
		}
	}
}

func TestThrottleDefaults(t *testing.T) {
	th := NewThrottle(config.ThrottleConfig{Enabled: true})
	if th.max != 10 || th.window != 10*time.Second {
		t.Errorf("defaults = %d per %v, want 10 per 10s", th.max, th.window)
	}
}

func TestThrottleReset(t *testing.T) {
	th := NewThrottle(config.ThrottleConfig{Enabled: true, MaxGenerations: 1, WindowSeconds: 60})
	th.Allow()
	if ok, _ := th.Allow(); ok {
		t.Fatal("second generation should be throttled")
	}
	th.Reset()
	if ok, _ := th.Allow(); !ok {
		t.Error("generation should be allowed after Reset")
	}
}
