package server

import (
	"net/http"
	"testing"

	"github.com/lawnchairsociety/levelforge/internal/config"
)

func TestConnLimiter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ConnectionsConfig
		acquire  []string
		wantLast bool
	}{
		{"per ip", config.ConnectionsConfig{MaxPerIP: 2, MaxTotal: 100}, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, false},
		{"other ip unaffected", config.ConnectionsConfig{MaxPerIP: 2, MaxTotal: 100}, []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"}, true},
		{"total", config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 3}, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}, false},
		{"unlimited", config.ConnectionsConfig{}, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1", "10.0.0.1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewConnLimiter(tt.cfg)
			last := len(tt.acquire) - 1
			for i, ip := range tt.acquire[:last] {
				if !limiter.TryAcquire(ip) {
					t.Fatalf("acquire %d (%s) should be allowed", i, ip)
				}
			}
			if got := limiter.TryAcquire(tt.acquire[last]); got != tt.wantLast {
				t.Errorf("last TryAcquire() = %v, want %v", got, tt.wantLast)
			}
		})
	}
}

func TestConnLimiter_Release(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 1, MaxTotal: 1})

	if !limiter.TryAcquire("10.0.0.1") {
		t.Fatal("first stream should be allowed")
	}
	if limiter.TryAcquire("10.0.0.2") {
		t.Error("second stream should hit the total limit")
	}

	limiter.Release("10.0.0.1")
	if !limiter.TryAcquire("10.0.0.2") {
		t.Error("stream should be allowed after release")
	}

	// Releasing an ip that holds nothing must not free someone else's slot.
	limiter.Release("10.0.0.9")
	if total, _ := limiter.Stats(); total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestConnLimiter_Stats(t *testing.T) {
	limiter := NewConnLimiter(config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 100})

	limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.2")

	total, ips := limiter.Stats()
	if total != 3 || ips != 2 {
		t.Errorf("Stats() = %d, %d; want 3, 2", total, ips)
	}
	if n := limiter.IPCount("192.168.1.1"); n != 2 {
		t.Errorf("IPCount() = %d, want 2", n)
	}
	if n := limiter.IPCount("192.168.1.3"); n != 0 {
		t.Errorf("IPCount() for unknown ip = %d, want 0", n)
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"localhost:4000", "localhost"},
		{"192.168.1.1", "192.168.1.1"}, // No port
	}

	for _, tt := range tests {
		result := extractIP(tt.input)
		if result != tt.expected {
			t.Errorf("extractIP(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		expected   string
	}{
		{
			name:       "X-Forwarded-For single IP",
			xff:        "203.0.113.50",
			remoteAddr: "10.0.0.1:12345",
			expected:   "203.0.113.50",
		},
		{
			name:       "X-Forwarded-For multiple IPs",
			xff:        "203.0.113.50, 70.41.3.18, 150.172.238.178",
			remoteAddr: "10.0.0.1:12345",
			expected:   "203.0.113.50", // First IP is the client
		},
		{
			name:       "X-Real-IP",
			xri:        "203.0.113.50",
			remoteAddr: "10.0.0.1:12345",
			expected:   "203.0.113.50",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			xff:        "203.0.113.50",
			xri:        "198.51.100.25",
			remoteAddr: "10.0.0.1:12345",
			expected:   "203.0.113.50",
		},
		{
			name:       "No headers - use RemoteAddr",
			remoteAddr: "192.168.1.100:54321",
			expected:   "192.168.1.100",
		},
		{
			name:       "Empty X-Forwarded-For falls back to RemoteAddr",
			xff:        "",
			remoteAddr: "192.168.1.100:54321",
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{
				RemoteAddr: tt.remoteAddr,
				Header:     make(http.Header),
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			result := getRealIP(req)
			if result != tt.expected {
				t.Errorf("getRealIP() = %q, want %q", result, tt.expected)
			}
		})
	}
}
