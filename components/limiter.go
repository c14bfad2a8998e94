package components

import (
	"sync"
	"time"
)

// userLimiter aplica un cooldown por usuario para frenar el spam de clicks.
type userLimiter struct {
	mu   sync.Mutex
	next map[string]time.Time
	win  time.Duration
}

func newUserLimiter(window time.Duration) *userLimiter {
	return &userLimiter{next: map[string]time.Time{}, win: window}
}

func (l *userLimiter) Allow(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.next[userID]; ok && now.Before(until) {
		return false
	}
	l.next[userID] = now.Add(l.win)
	return true
}

// sweep drops stale entries so the map can't grow without bound.
func (l *userLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, until := range l.next {
		if now.After(until) {
			delete(l.next, id)
		}
	}
}
