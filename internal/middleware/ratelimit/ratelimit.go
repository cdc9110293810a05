// Package ratelimit is a fixed-window, per-client request limiter.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	applog "finbot/internal/log"
)

// Limiter counts requests per client in fixed windows. A client's window
// opens with its first request.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	limit     int
	span      time.Duration
	staleness time.Duration

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter starts the cleanup loop; Stop ends it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		windows:   make(map[string]*window),
		now:       time.Now,
		limit:     cfg.RequestsPerMinute,
		span:      time.Minute,
		staleness: 10 * time.Minute,
		stop:      make(chan struct{}),
	}
	go l.cleanupLoop(cfg.CleanupInterval)
	return l
}

// Allow reports whether client may make another request now.
func (l *Limiter) Allow(client string) bool {
	ok, _ := l.take(client)
	return ok
}

// take consumes one request from client's window. When refused it also
// returns how long until the window resets.
func (l *Limiter) take(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[client]
	if !ok || now.Sub(w.start) >= l.span {
		l.windows[client] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= l.limit {
		l.rejected.Add(1)
		return false, w.start.Add(l.span).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupStaleEntries()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.staleness)
	for client, w := range l.windows {
		if w.start.Before(cutoff) {
			delete(l.windows, client)
		}
	}
}

// ActiveClients is the number of clients with a tracked window.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Rejected is the number of requests refused so far.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Stop is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware refuses requests over the limit with Retry-After set. onLimit
// writes the refusal body; nil uses a plain-text 429.
func (l *Limiter) Middleware(extractClient func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := extractClient(r)
			ok, wait := l.take(client)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldComponent, applog.ComponentRateLimit,
				applog.FieldClientIP, client)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
