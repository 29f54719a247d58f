package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client token bucket held in process memory. Good
// enough for a single API instance; a multi-instance deployment would move
// the counters to Redis.
type RateLimiter struct {
	capacity  int
	perMinute int

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	tokens   float64
	refilled time.Time
}

// NewRateLimiter allows perMinute requests per client IP with bursts up to
// capacity. A non-positive capacity defaults to perMinute.
func NewRateLimiter(capacity, perMinute int) *RateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &RateLimiter{
		capacity:  capacity,
		perMinute: perMinute,
		clients:   make(map[string]*clientBucket),
	}
}

// Middleware enforces the limit keyed by client IP. Probe endpoints are
// exempt so liveness checks never consume quota.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/metrics":
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.take(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) take(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.clients[key]
	if !ok {
		l.clients[key] = &clientBucket{tokens: float64(l.capacity) - 1, refilled: now}
		return true
	}

	b.tokens += now.Sub(b.refilled).Minutes() * float64(l.perMinute)
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.refilled = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
