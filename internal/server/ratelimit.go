package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily quotas. Minute and
// hour limits use fixed windows that start with the client's first request
// in the window; daily quotas reset at local midnight.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*clientUsage
	now     func() time.Time
}

type clientUsage struct {
	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
	usage       Usage
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	RequestsLastMinute int   `json:"requests_last_minute"`
	RequestsLastHour   int   `json:"requests_last_hour"`
	RequestsToday      int   `json:"requests_today"`
	DataToday          int64 `json:"data_today"`
}

// NewRateLimiter creates a rate limiter. A zero limit disables that check.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from
// clientID. Admitted requests are counted; rejected ones are not.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c := rl.client(clientID, now)
	c.roll(now)

	if err := rl.checkRates(c, now); err != nil {
		return err
	}
	if err := rl.checkQuotas(c, dataSize, now); err != nil {
		return err
	}

	c.usage.RequestsLastMinute++
	c.usage.RequestsLastHour++
	c.usage.RequestsToday++
	c.usage.DataToday += dataSize
	return nil
}

func (rl *RateLimiter) client(id string, now time.Time) *clientUsage {
	c, ok := rl.clients[id]
	if !ok {
		c = &clientUsage{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[id] = c
	}
	return c
}

// roll starts new windows once the current ones have elapsed.
func (c *clientUsage) roll(now time.Time) {
	if now.Sub(c.minuteStart) >= time.Minute {
		c.minuteStart = now
		c.usage.RequestsLastMinute = 0
	}
	if now.Sub(c.hourStart) >= time.Hour {
		c.hourStart = now
		c.usage.RequestsLastHour = 0
	}
	if day := startOfDay(now); !day.Equal(c.dayStart) {
		c.dayStart = day
		c.usage.RequestsToday = 0
		c.usage.DataToday = 0
	}
}

func (rl *RateLimiter) checkRates(c *clientUsage, now time.Time) error {
	if rl.requestsPerMinute > 0 && c.usage.RequestsLastMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(c.minuteStart),
		}
	}
	if rl.requestsPerHour > 0 && c.usage.RequestsLastHour >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: time.Hour - now.Sub(c.hourStart),
		}
	}
	return nil
}

func (rl *RateLimiter) checkQuotas(c *clientUsage, dataSize int64, now time.Time) error {
	resets := startOfDay(now).AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && c.usage.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(c.usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && c.usage.DataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.maxDataPerDay,
			Used:   c.usage.DataToday,
			Resets: resets,
		}
	}
	return nil
}

// GetUsage returns a copy of clientID's counters. Unknown clients report
// zero usage.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if c, ok := rl.clients[clientID]; ok {
		return c.usage
	}
	return Usage{}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
