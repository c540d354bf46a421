package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ailegalmate/legalmate/pkg/fn"
)

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown",
	} {
		if st.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", st, st.String(), want)
		}
	}
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != 5 || b.opts.Timeout != 30*time.Second || b.opts.HalfOpenMax != 1 {
		t.Fatalf("defaults not applied: %+v", b.opts)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %v", b.State())
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()
	fail := errors.New("fail")

	for i := 0; i < 3; i++ {
		_ = b.Call(ctx, func(context.Context) error { return fail })
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected rejected call, got %v (called=%v)", err, called)
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()
	fail := errors.New("fail")

	_ = b.Call(ctx, func(context.Context) error { return fail })
	_ = b.Call(ctx, func(context.Context) error { return fail })
	_ = b.Call(ctx, func(context.Context) error { return nil })
	_ = b.Call(ctx, func(context.Context) error { return fail })
	_ = b.Call(ctx, func(context.Context) error { return fail })
	if b.State() != StateClosed {
		t.Fatalf("expected still closed, got %v", b.State())
	}
}

func TestBreakerHalfOpenTransitions(t *testing.T) {
	now := time.Now()
	var transitions []string
	b := NewBreaker(BreakerOpts{
		Name:          "generate",
		FailThreshold: 2,
		Timeout:       5 * time.Second,
		HalfOpenMax:   1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }
	ctx := context.Background()
	fail := errors.New("fail")

	_ = b.Call(ctx, func(context.Context) error { return fail })
	_ = b.Call(ctx, func(context.Context) error { return fail })

	now = now.Add(6 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}
	_ = b.Call(ctx, func(context.Context) error { return fail })
	if b.State() != StateOpen {
		t.Fatalf("expected open after half-open failure, got %v", b.State())
	}

	now = now.Add(6 * time.Second)
	_ = b.Call(ctx, func(context.Context) error { return nil })
	if b.State() != StateClosed {
		t.Fatalf("expected closed after trial success, got %v", b.State())
	}

	want := []string{
		"generate:closed->open",
		"generate:open->half-open",
		"generate:half-open->open",
		"generate:open->half-open",
		"generate:half-open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("[%d] %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreakerHalfOpenMaxExceeded(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()
	_ = b.Call(ctx, func(context.Context) error { return errors.New("x") })
	now = now.Add(2 * time.Second)

	trial := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Call(ctx, func(context.Context) error { <-trial; return nil })
	}()
	// Wait until the trial call holds the only half-open slot.
	for {
		b.mu.Lock()
		n := b.halfOpenCount
		b.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := b.Call(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen for second trial call, got %v", err)
	}
	close(trial)
	if err := <-done; err != nil {
		t.Fatalf("trial: %v", err)
	}
}

func TestIgnoreCanceled(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, IsFailure: IgnoreCanceled})
	ctx := context.Background()
	_ = b.Call(ctx, func(context.Context) error { return context.Canceled })
	if b.State() != StateClosed {
		t.Fatal("cancellation should not trip the breaker")
	}
	_ = b.Call(ctx, func(context.Context) error { return context.DeadlineExceeded })
	if b.State() != StateOpen {
		t.Fatal("deadline should trip the breaker")
	}
}

func TestBreakerStage(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Second})
	ctx := context.Background()
	calls := 0
	failing := fn.Stage[int, int](func(_ context.Context, n int) fn.Result[int] {
		calls++
		return fn.Err[int](errors.New("down"))
	})
	s := BreakerStage(b, failing)
	s(ctx, 1)
	s(ctx, 1)
	r := s(ctx, 1)
	_, err := r.Unwrap()
	if !errors.Is(err, ErrCircuitOpen) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	ok := fn.Lift(func(_ context.Context, n int) (int, error) { return n + 1, nil })
	if BreakerStage(nil, ok)(ctx, 1).IsErr() {
		t.Fatal("nil breaker should pass through")
	}
}

func TestBreakerConcurrentAccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 100, Timeout: time.Second})
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Call(ctx, func(context.Context) error {
				if i%2 == 0 {
					return errors.New("x")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	_ = b.State()
}
