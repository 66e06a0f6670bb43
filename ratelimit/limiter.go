// Package ratelimit implements sliding-window admission control keyed by
// client identifier.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks the timestamps of admitted requests per client and rejects
// a request once the window already holds the configured maximum. Clients are
// fully independent of each other.
type Limiter struct {
	max    int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		hits:   map[string][]time.Time{},
	}
}

// Admit prunes timestamps older than the window, then either rejects without
// recording now (window full) or records now and admits.
func (l *Limiter) Admit(clientID string, now time.Time) bool {
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[clientID], cutoff)
	if len(kept) >= l.max {
		l.hits[clientID] = kept
		return false
	}

	l.hits[clientID] = append(kept, now)
	return true
}

// Sweep drops tracking entries whose windows have fully expired, bounding
// memory growth from one-off clients. Returns the number of entries removed.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for clientID, times := range l.hits {
		kept := prune(times, cutoff)
		if len(kept) == 0 {
			delete(l.hits, clientID)
			removed++
			continue
		}
		l.hits[clientID] = kept
	}
	return removed
}

// prune drops leading timestamps at or before cutoff. Timestamps are
// appended in call order, so the slice is already sorted ascending.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(times) && !times[idx].After(cutoff) {
		idx++
	}
	return times[idx:]
}
