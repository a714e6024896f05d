package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps timestamps in process. Suitable for a single instance.
// Keys whose hits have all expired are dropped, so idle tenants don't
// accumulate.
type MemoryLimiter struct {
	mu        sync.Mutex
	rules     Rules
	hits      map[string][]time.Time
	maxWindow time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryLimiter(rules Rules) *MemoryLimiter {
	var maxWindow time.Duration
	for _, r := range rules {
		if r.Window > maxWindow {
			maxWindow = r.Window
		}
	}
	return &MemoryLimiter{
		rules:     rules,
		hits:      make(map[string][]time.Time),
		maxWindow: maxWindow,
		now:       time.Now,
	}
}

func (m *MemoryLimiter) CheckLimit(_ context.Context, action, tenantKey string) bool {
	rule, ok := m.rules[action]
	if !ok {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	cutoff := now.Add(-rule.Window)
	k := key(action, tenantKey)

	kept := m.hits[k][:0]
	for _, t := range m.hits[k] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rule.Limit {
		if len(kept) == 0 {
			delete(m.hits, k)
		} else {
			m.hits[k] = kept
		}
		return false
	}

	m.hits[k] = append(kept, now)
	return true
}

// sweep drops keys with no hit inside the longest window. It runs at most
// once per maxWindow. Callers hold mu.
func (m *MemoryLimiter) sweep(now time.Time) {
	if m.maxWindow <= 0 || now.Sub(m.lastSweep) < m.maxWindow {
		return
	}
	m.lastSweep = now

	cutoff := now.Add(-m.maxWindow)
	for k, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(m.hits, k)
		}
	}
}
