package mid

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerKey(t *testing.T) {
	l := NewRateLimiter(1, 2, time.Minute)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("u1") || !l.Allow("u1") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("u1") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("u2") {
		t.Fatal("other users have their own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("u1") {
		t.Fatal("bucket should refill after a second")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	l := NewRateLimiter(1, 1, time.Minute)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	if n := l.Sweep(); n != 1 {
		t.Fatalf("remaining = %d, want 1", n)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewRateLimiter(0.5, 1, time.Minute)
	h := RateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ai/ask", nil)
		req.RemoteAddr = addr
		if user != "" {
			req = req.WithContext(WithUserID(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("u1", "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	rec := do("u1", "10.0.0.2:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec := do("", "10.0.0.1:5555"); rec.Code != http.StatusOK {
		t.Fatalf("anonymous caller keyed by IP: %d", rec.Code)
	}
	if rec := do("", "10.0.0.1:6666"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same IP again: %d", rec.Code)
	}
}
