package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	maxEntries      = 10000
	cleanupInterval = time.Minute
	entryTTL        = 5 * time.Minute
)

type entry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// MemoryLimiter is a single-instance sliding window.
type MemoryLimiter struct {
	mu          sync.Mutex
	store       map[string]*entry
	lastCleanup time.Time
	now         func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		store:       make(map[string]*entry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *MemoryLimiter) cleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}
	rl.lastCleanup = now

	for key, e := range rl.store {
		if now.Sub(e.lastAccess) > entryTTL {
			delete(rl.store, key)
		}
	}

	// Still too large: drop an arbitrary fifth.
	if len(rl.store) > maxEntries {
		drop := len(rl.store) / 5
		for key := range rl.store {
			if drop == 0 {
				break
			}
			delete(rl.store, key)
			drop--
		}
	}
}

func (rl *MemoryLimiter) CheckLimit(_ context.Context, key string, limit int, window time.Duration) Result {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)
	windowStart := now.Add(-window)

	e, ok := rl.store[key]
	if !ok {
		e = &entry{}
		rl.store[key] = e
	}
	e.lastAccess = now

	filtered := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}
	e.timestamps = filtered

	resetAt := now.Add(window)
	if len(e.timestamps) > 0 {
		resetAt = e.timestamps[0].Add(window)
	}

	if len(e.timestamps) >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	e.timestamps = append(e.timestamps, now)
	return Result{Allowed: true, Remaining: limit - len(e.timestamps), ResetAt: resetAt}
}
