package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimits configures a RateLimiter. A zero field disables that limit.
type RateLimits struct {
	PerMinute   int
	PerHour     int
	PerDay      int
	BytesPerDay int64
}

// RateLimiter enforces per-client request rates and daily quotas. Minute and
// hour windows open with the first request after the previous window closed;
// the daily quota resets at local midnight.
type RateLimiter struct {
	mu      sync.Mutex
	limits  RateLimits
	clients map[string]*clientUsage
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// roll opens a fresh window when the current one is older than span.
func (w *window) roll(now time.Time, span time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= span {
		w.start = now
		w.count = 0
	}
}

type clientUsage struct {
	minute     window
	hour       window
	day        time.Time
	reqsToday  int
	bytesToday int64
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	RequestsThisMinute int
	RequestsThisHour   int
	RequestsToday      int
	BytesToday         int64
}

// pruneThreshold bounds the client map before idle entries are swept.
const pruneThreshold = 4096

// NewRateLimiter creates a limiter with the given limits.
func NewRateLimiter(limits RateLimits) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.clients) >= pruneThreshold {
		rl.prune(now)
	}

	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{day: midnight(now)}
		rl.clients[client] = u
	}
	u.minute.roll(now, time.Minute)
	u.hour.roll(now, time.Hour)
	if today := midnight(now); !today.Equal(u.day) {
		u.day = today
		u.reqsToday = 0
		u.bytesToday = 0
	}

	if l := rl.limits.PerMinute; l > 0 && u.minute.count >= l {
		return &RateLimitError{Window: "minute", Limit: l, RetryAfter: u.minute.start.Add(time.Minute).Sub(now)}
	}
	if l := rl.limits.PerHour; l > 0 && u.hour.count >= l {
		return &RateLimitError{Window: "hour", Limit: l, RetryAfter: u.hour.start.Add(time.Hour).Sub(now)}
	}
	resets := u.day.AddDate(0, 0, 1)
	if l := rl.limits.PerDay; l > 0 && u.reqsToday >= l {
		return &QuotaExceededError{Quota: "requests", Limit: int64(l), Used: int64(u.reqsToday), Resets: resets}
	}
	if l := rl.limits.BytesPerDay; l > 0 && u.bytesToday+size > l {
		return &QuotaExceededError{Quota: "bytes", Limit: l, Used: u.bytesToday, Resets: resets}
	}

	u.minute.count++
	u.hour.count++
	u.reqsToday++
	u.bytesToday += size
	return nil
}

// Usage returns the counters recorded for client.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	return Usage{
		RequestsThisMinute: u.minute.count,
		RequestsThisHour:   u.hour.count,
		RequestsToday:      u.reqsToday,
		BytesToday:         u.bytesToday,
	}
}

// prune drops clients with no activity in the last hour and none today.
func (rl *RateLimiter) prune(now time.Time) {
	today := midnight(now)
	for id, u := range rl.clients {
		if now.Sub(u.hour.start) >= time.Hour && !u.day.Equal(today) {
			delete(rl.clients, id)
		}
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exhausted minute or hour window.
type RateLimitError struct {
	Window     string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Window, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports an exhausted daily quota.
type QuotaExceededError struct {
	Quota  string // "requests" or "bytes"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Quota, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
