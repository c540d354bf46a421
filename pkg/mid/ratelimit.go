package mid

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per caller.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per
// caller. Buckets idle for longer than ttl are dropped on the next sweep.
func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets not used within ttl and returns how many remain.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.ttl)
	for k, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
	return len(l.buckets)
}

// RateLimit returns middleware that answers 429 once a caller exhausts its
// bucket. Callers are keyed by user id behind Auth, else by remote IP.
func RateLimit(l *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserID(r.Context())
			if !ok {
				key = clientIP(r)
			}
			if !l.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				WriteMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 60
	}
	return max(1, int(1/float64(l.limit)))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
