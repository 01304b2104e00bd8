package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/edustep/placement-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// RateLimiter implements a fixed-window rate limiter keyed by session ID.
// Requests without a session_id path parameter fall back to the client IP.
// Rejected requests get a 429 with a Retry-After hint; nothing is queued.
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // Requests per window
	interval time.Duration // Window length
	now      func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter creates a RateLimiter (e.g., 30 requests per minute).
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}

	// Drop stale windows every minute.
	go func() {
		for range time.Tick(time.Minute) {
			rl.cleanup()
		}
	}()

	return rl
}

// Middleware returns a Gin middleware enforcing the fixed-window policy.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("session_id")
		if key == "" {
			key = c.ClientIP()
		}

		if retryAfter, ok := rl.Allow(key); !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// Allow records one request for key and reports whether it fits in the
// current window. When rejected, it returns the seconds until the window
// resets.
func (rl *RateLimiter) Allow(key string) (int, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.interval {
		w = &window{start: now}
		rl.windows[key] = w
	}

	if w.count >= rl.limit {
		retry := int(rl.interval.Seconds() - now.Sub(w.start).Seconds())
		if retry < 1 {
			retry = 1
		}
		return retry, false
	}

	w.count++
	return 0, true
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if time.Since(w.start) > 3*rl.interval {
			delete(rl.windows, key)
		}
	}
}
