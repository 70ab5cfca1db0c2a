package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(*http.Request) string

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts a request against key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimit rejects requests the limiter refuses with 429. When the limiter
// itself fails, failOpen decides between letting the request through and 503.
func RateLimit(l Limiter, keyFn KeyFunc, logger *slog.Logger, failOpen bool) Middleware {
	if keyFn == nil {
		keyFn = PatientOrClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), keyFn(r))
			switch {
			case err != nil:
				if logger != nil {
					logger.Warn("rate limiter error", "err", err)
				}
				if !failOpen {
					http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
					return
				}
			case !d.Allowed:
				if d.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter/time.Second)+1))
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MemoryLimiter is a fixed-window limiter for single-instance deployments.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	sweepAt time.Time
}

type window struct {
	hits    int
	resetAt time.Time
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: period, now: time.Now, windows: map[string]*window{}}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		m.windows[key] = &window{hits: 1, resetAt: now.Add(m.window)}
		return Decision{Allowed: true}, nil
	}
	if w.hits >= m.limit {
		return Decision{RetryAfter: w.resetAt.Sub(now)}, nil
	}
	w.hits++
	return Decision{Allowed: true}, nil
}

// sweep drops expired windows at most once per period.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Before(m.sweepAt) {
		return
	}
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
	m.sweepAt = now.Add(m.window)
}

// PatientOrClientKey buckets authenticated traffic per patient and anonymous
// traffic per client address.
func PatientOrClientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(PatientIDHeader)); id != "" {
		return "patient:" + id
	}
	return "ip:" + clientAddr(r)
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
