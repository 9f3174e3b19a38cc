package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// agentState tracks one agent's trailing-hour timestamps and any active
// cooldown. Timestamps are pruned on every check, so the slice is bounded
// by the hourly limit.
type agentState struct {
	timestamps   []time.Time
	blockedUntil time.Time
}

// MemoryLimiter is the in-process sliding-window limiter. A mutex guards
// the state map, so concurrent checks for the same agent serialize and
// cannot admit more than the configured budget.
type MemoryLimiter struct {
	mu    sync.Mutex
	cfg   Config
	clock Clock
	state map[string]*agentState
}

// NewMemoryLimiter creates a limiter with the given budget. A nil clock
// uses the system clock.
func NewMemoryLimiter(cfg Config, clock Clock) *MemoryLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryLimiter{
		cfg:   cfg.withDefaults(),
		clock: clock,
		state: make(map[string]*agentState),
	}
}

// Check applies the budget for one proposed execution. An allowed check
// records its timestamp; a refusal does not, but exhausting a window
// starts (or extends) a cooldown during which every check is refused.
func (l *MemoryLimiter) Check(_ context.Context, agentID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	st, ok := l.state[agentID]
	if !ok {
		st = &agentState{}
		l.state[agentID] = st
	}

	// Prune to the trailing hour.
	cutoff := now.Add(-time.Hour)
	kept := st.timestamps[:0]
	for _, ts := range st.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	st.timestamps = kept

	if now.Before(st.blockedUntil) {
		remaining := st.blockedUntil.Sub(now)
		return Decision{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit cooldown active, retry in %ds", int(remaining.Seconds())+1),
			RetryAfter: remaining,
		}
	}

	minuteCutoff := now.Add(-time.Minute)
	inMinute := 0
	for _, ts := range st.timestamps {
		if ts.After(minuteCutoff) {
			inMinute++
		}
	}

	if inMinute >= l.cfg.PerMinute {
		st.blockedUntil = now.Add(l.cfg.CooldownBase)
		return Decision{
			Allowed:    false,
			Reason:     fmt.Sprintf("per-minute execution limit reached (%d/min)", l.cfg.PerMinute),
			RetryAfter: l.cfg.CooldownBase,
		}
	}
	if len(st.timestamps) >= l.cfg.PerHour {
		cooldown := 5 * l.cfg.CooldownBase
		st.blockedUntil = now.Add(cooldown)
		return Decision{
			Allowed:    false,
			Reason:     fmt.Sprintf("per-hour execution limit reached (%d/hour)", l.cfg.PerHour),
			RetryAfter: cooldown,
		}
	}

	st.timestamps = append(st.timestamps, now)
	return Decision{Allowed: true}
}
