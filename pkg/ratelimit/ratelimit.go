// Package ratelimit implements an in-memory token-bucket limiter keyed by
// client identity.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	seen   time.Time
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the next token, zero when Allowed.
	RetryAfter time.Duration
}

// Limiter gives each key a bucket of limit tokens that refills continuously
// over window. Idle buckets are swept in the background until Stop.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
}

// New creates a limiter granting limit requests per window to each key.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.sweep(max(window, time.Minute))
	return l
}

// Take consumes a token for key if one is available.
func (l *Limiter) Take(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := Decision{Limit: l.limit}
	if l.limit <= 0 {
		d.RetryAfter = l.window
		return d
	}
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit), seen: now}
		l.buckets[key] = b
	}
	perSecond := float64(l.limit) / l.window.Seconds()
	b.tokens = math.Min(float64(l.limit), b.tokens+now.Sub(b.seen).Seconds()*perSecond)
	b.seen = now

	if b.tokens < 1 {
		d.RetryAfter = time.Duration((1 - b.tokens) / perSecond * float64(time.Second))
		return d
	}
	b.tokens--
	d.Allowed = true
	d.Remaining = int(b.tokens)
	return d
}

// Allow reports whether key may make another request, consuming a token if
// so.
func (l *Limiter) Allow(key string) bool {
	return l.Take(key).Allowed
}

// Reset clears the bucket for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Stop ends the background sweep.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// sweep drops buckets idle long enough to have refilled completely; a fresh
// bucket is equivalent.
func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-l.window)
			for key, b := range l.buckets {
				if b.seen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
