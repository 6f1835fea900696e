package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/levelforge/internal/config"
)

// ConnLimiter caps concurrent generation streams, per IP and in total.
type ConnLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

// NewConnLimiter creates a limiter from the connections section. A limit of
// 0 is unlimited.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		perIP:    make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// TryAcquire takes a stream slot for ip and reports whether one was free.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.total >= c.maxTotal {
		return false
	}
	if c.maxPerIP > 0 && c.perIP[ip] >= c.maxPerIP {
		return false
	}

	c.perIP[ip]++
	c.total++
	return true
}

// Release gives back a slot taken by TryAcquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.perIP[ip] > 0 {
		c.perIP[ip]--
		if c.perIP[ip] == 0 {
			delete(c.perIP, ip)
		}
	}
	if c.total > 0 {
		c.total--
	}
}

// Stats returns the number of open streams and of distinct IPs holding them.
func (c *ConnLimiter) Stats() (total int, ips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, len(c.perIP)
}

// IPCount returns the number of open streams for ip.
func (c *ConnLimiter) IPCount(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perIP[ip]
}

// extractIP strips the port from an ip:port address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// getRealIP returns the client IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then the connection's remote address.
func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return extractIP(r.RemoteAddr)
}
