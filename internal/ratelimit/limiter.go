// Package ratelimit bounds how often each agent may request execution.
// Limits use a sliding window (events within a trailing interval, not
// fixed buckets) plus escalating cooldowns once a window is exhausted.
package ratelimit

import (
	"context"
	"time"
)

// Config holds the per-agent budget. Zero values fall back to defaults.
type Config struct {
	PerMinute    int           // executions allowed in any trailing minute
	PerHour      int           // executions allowed in any trailing hour
	CooldownBase time.Duration // cooldown after the minute window; 5x after the hour window
}

// DefaultConfig returns the stock budget: 10/minute, 60/hour, 60s base
// cooldown.
func DefaultConfig() Config {
	return Config{
		PerMinute:    10,
		PerHour:      60,
		CooldownBase: time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PerMinute <= 0 {
		c.PerMinute = d.PerMinute
	}
	if c.PerHour <= 0 {
		c.PerHour = d.PerHour
	}
	if c.CooldownBase <= 0 {
		c.CooldownBase = d.CooldownBase
	}
	return c
}

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration // remaining cooldown when refused during one
}

// Limiter is the budget check shared by the in-memory and Redis
// implementations. State is keyed by agent id only: two users sharing an
// agent id share a budget.
type Limiter interface {
	Check(ctx context.Context, agentID string) Decision
}

// Clock abstracts time.Now so window behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
