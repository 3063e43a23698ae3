package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/supp-dex/instance-api/internal/adapter"
)

// Limiter enforces a fixed-window request quota per key
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Allow records a call for key and reports whether it is within quota.
	// When denied, retryAfter is the time remaining in the current window.
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// window tracks one fixed window for a key
type window struct {
	start time.Time
	count int
}

// Config holds fixed-window limiter configuration
type Config struct {
	Max     int           // allowed calls per window
	Window  time.Duration // window length
	MaxKeys int           // bound on tracked keys
}

type fixedWindow struct {
	cfg   Config
	clock adapter.Clock

	mu      sync.Mutex
	windows *expirable.LRU[string, *window]
}

// NewFixedWindow creates a fixed-window limiter. Windows live in a bounded
// expiring map so stale keys are evicted instead of accumulating for the life
// of the process.
func NewFixedWindow(cfg Config, clock adapter.Clock) Limiter {
	if cfg.Max <= 0 {
		cfg.Max = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 65536
	}

	return &fixedWindow{
		cfg:     cfg,
		clock:   clock,
		windows: expirable.NewLRU[string, *window](cfg.MaxKeys, nil, cfg.Window),
	}
}

// Allow records a call for key and reports whether it is within quota. The
// check-and-update is atomic per key, so concurrent requests cannot exceed the
// quota between the read and the increment.
func (l *fixedWindow) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	w, ok := l.windows.Get(key)
	if !ok || now.Sub(w.start) > l.cfg.Window {
		l.windows.Add(key, &window{start: now, count: 1})
		return true, 0
	}

	if w.count >= l.cfg.Max {
		return false, l.cfg.Window - now.Sub(w.start)
	}

	w.count++
	return true, 0
}
