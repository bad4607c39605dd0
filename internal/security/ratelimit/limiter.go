package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Keys are whatever the caller
// identifies a client by: an authenticated user id, or a remote address for
// anonymous traffic.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
	}
	go limiter.reapIdleBuckets()
	return limiter
}

// Allow records one request for key and reports whether it fits in the
// window. An empty key is never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admit(key, l.maxReqs, l.window)
}

// AllowStrict applies a tighter, caller-supplied limit for sensitive
// endpoints. Strict buckets are kept separate from the regular ones so the
// two limits do not interfere.
func (l *Limiter) AllowStrict(key string, maxReqs int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admit("strict:"+key, maxReqs, window)
}

func (l *Limiter) admit(key string, maxReqs int, window time.Duration) bool {
	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-window)
	var recent []time.Time
	for _, t := range b.requests {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	b.requests = recent
	b.lastSeen = now

	if len(b.requests) >= maxReqs {
		return false
	}
	b.requests = append(b.requests, now)
	return true
}

func (l *Limiter) reapIdleBuckets() {
	for range l.cleanup.C {
		l.mu.Lock()
		stale := time.Now().Add(-15 * time.Minute)
		for key, b := range l.buckets {
			if b.lastSeen.Before(stale) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
}
