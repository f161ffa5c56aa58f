package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SlidingWindowLimiter is a per-client sliding-window admission gate. State
// is in-process only; a restart resets every window. The mutex is held for
// the prune+check+record step and nothing else, so unrelated traffic is
// never serialized behind a slow handler.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
}

func NewSlidingWindowLimiter(max int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		requests: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
}

// Admit prunes timestamps older than now-window for the client, then admits
// and records only if fewer than max remain. A denied request is not
// recorded: it must not extend its own window.
func (l *SlidingWindowLimiter) Admit(clientID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.requests[clientID][:0]
	for _, t := range l.requests[clientID] {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.requests[clientID] = recent
		return false
	}
	l.requests[clientID] = append(recent, now)
	return true
}

// PruneIdle drops clients whose whole window has lapsed, so the map does not
// grow without bound. Returns the number of clients removed.
func (l *SlidingWindowLimiter) PruneIdle(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for client, stamps := range l.requests {
		idle := true
		for _, t := range stamps {
			if now.Sub(t) < l.window {
				idle = false
				break
			}
		}
		if idle {
			delete(l.requests, client)
			removed++
		}
	}
	return removed
}

// RateLimiter gates every authentication-sensitive route. The client
// identity comes from X-Forwarded-For when present, falling back to the
// socket address; it is best-effort, not a security boundary.
func RateLimiter(limiter *SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := c.Get("X-Forwarded-For")
		if clientID == "" {
			clientID = c.IP()
		}

		if !limiter.Admit(clientID, time.Now()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, slow down.",
			})
		}
		return c.Next()
	}
}
