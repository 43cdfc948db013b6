// Package ratelimit implements the sliding-window request limits the
// transport applies before handing a message to the router: a global
// requests-per-second cap and a per-user requests-per-minute cap.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps in memory.
type Limiter struct {
	globalPerSecond int
	userPerMinute   int

	mu     sync.Mutex
	global []time.Time
	users  map[string][]time.Time
	now    func() time.Time
}

// New builds a limiter. Non-positive caps disable the corresponding check.
func New(globalPerSecond, userPerMinute int) *Limiter {
	return &Limiter{
		globalPerSecond: globalPerSecond,
		userPerMinute:   userPerMinute,
		users:           make(map[string][]time.Time),
		now:             time.Now,
	}
}

// Allow records the request and reports whether it is within limits.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if l.globalPerSecond > 0 {
		l.global = prune(l.global, now.Add(-time.Second))
		if len(l.global) >= l.globalPerSecond {
			return false
		}
		l.global = append(l.global, now)
	}

	if l.userPerMinute > 0 {
		recent := prune(l.users[userID], now.Add(-time.Minute))
		if len(recent) >= l.userPerMinute {
			l.users[userID] = recent
			return false
		}
		l.users[userID] = append(recent, now)
	}

	return true
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	return stamps[idx:]
}
