// Package feedback produces a short narrative coaching text from category
// scores using an OpenAI-compatible chat completion endpoint.
package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pavelanni/leadercheck/internal/scoring"
)

var (
	// ErrNotConfigured means no endpoint or API key is set.
	ErrNotConfigured = errors.New("feedback generator not configured")
	// ErrUnavailable is returned when no narrative could be produced.
	ErrUnavailable = errors.New("feedback unavailable")
	// ErrRateLimited is returned when a user asks for feedback too often.
	ErrRateLimited = errors.New("feedback rate limit exceeded")
)

// Generator turns formatted scores into narrative text.
type Generator interface {
	Generate(ctx context.Context, scores scoring.FeedbackScores) (string, error)
}

// Unavailable is the Generator used when nothing is configured.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, scoring.FeedbackScores) (string, error) {
	return "", ErrUnavailable
}

// Limited applies a token bucket per key (the user identifier) in front of a Generator.
// A bucket idle long enough to have refilled is dropped, so the map holds
// roughly the keys seen within one refill period.
type Limited struct {
	next  Generator
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const (
	minIdle = time.Minute
	maxIdle = 24 * time.Hour
)

// NewLimited wraps next. A non-positive rps disables limiting.
func NewLimited(next Generator, rps float64, burst int) *Limited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:     next,
		limit:    limit,
		burst:    burst,
		idle:     refillTime(limit, burst),
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

// refillTime is how long an untouched bucket takes to fill up, within
// [minIdle, maxIdle].
func refillTime(limit rate.Limit, burst int) time.Duration {
	if limit == rate.Inf {
		return minIdle
	}
	secs := float64(burst) / float64(limit)
	if secs >= maxIdle.Seconds() {
		return maxIdle
	}
	return max(time.Duration(secs*float64(time.Second)), minIdle)
}

// Allow reports whether key may make a request now and consumes a token if so.
func (l *Limited) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets idle for at least l.idle. Callers hold l.mu.
func (l *Limited) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked keys.
func (l *Limited) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// GenerateFor generates feedback on behalf of key, or fails with ErrRateLimited.
func (l *Limited) GenerateFor(ctx context.Context, key string, scores scoring.FeedbackScores) (string, error) {
	if !l.Allow(key) {
		return "", ErrRateLimited
	}
	return l.next.Generate(ctx, scores)
}
