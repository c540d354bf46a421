// Package resilience provides a circuit breaker for upstream calls.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ailegalmate/legalmate/pkg/fn"
)

// Circuit breaker states.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // tripping, reject calls
	StateHalfOpen              // allowing a trial call
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures the circuit breaker.
type BreakerOpts struct {
	// Name identifies the breaker in state change callbacks.
	Name string
	// FailThreshold is how many consecutive failures trip the breaker.
	FailThreshold int
	// Timeout is how long the breaker stays open before entering half-open.
	Timeout time.Duration
	// HalfOpenMax is the number of trial calls allowed in half-open state.
	HalfOpenMax int
	// IsFailure decides whether an error counts against the breaker.
	// nil counts every non-nil error.
	IsFailure func(error) bool
	// OnStateChange is called (outside the lock) after each transition.
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerOpts provides sensible defaults.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// IgnoreCanceled is an IsFailure policy that does not count caller
// cancellation against the upstream.
func IgnoreCanceled(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Breaker implements a circuit breaker with closed/open/half-open states.
type Breaker struct {
	mu            sync.Mutex
	opts          BreakerOpts
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCount int
	now           func() time.Time // for testing
}

// NewBreaker creates a circuit breaker with the given options.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerOpts.Timeout
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	if opts.IsFailure == nil {
		opts.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	st, from, changed := b.currentState()
	b.mu.Unlock()
	if changed {
		b.notify(from, st)
	}
	return st
}

// currentState returns state, transitioning open→half-open if timeout
// elapsed. Must hold mu.
func (b *Breaker) currentState() (st, from State, changed bool) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Timeout {
		b.state = StateHalfOpen
		b.halfOpenCount = 0
		return StateHalfOpen, StateOpen, true
	}
	return b.state, b.state, false
}

func (b *Breaker) notify(from, to State) {
	if b.opts.OnStateChange != nil && from != to {
		b.opts.OnStateChange(b.opts.Name, from, to)
	}
}

// allow reserves a slot for one call or reports ErrCircuitOpen.
func (b *Breaker) allow() error {
	b.mu.Lock()
	st, from, changed := b.currentState()
	var err error
	switch st {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenCount >= b.opts.HalfOpenMax {
			err = ErrCircuitOpen
		} else {
			b.halfOpenCount++
		}
	}
	b.mu.Unlock()
	if changed {
		b.notify(from, st)
	}
	return err
}

// record folds the outcome of a call into the breaker state.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	if b.opts.IsFailure(err) {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
			b.halfOpenCount = 0
		}
	} else {
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.failures = 0
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// Call executes f through the circuit breaker.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := f(ctx)
	b.record(err)
	return err
}

// CallResult is a generic version of Call that works with fn.Result.
func CallResult[T any](b *Breaker, ctx context.Context, f func(context.Context) fn.Result[T]) fn.Result[T] {
	if err := b.allow(); err != nil {
		return fn.Err[T](err)
	}
	result := f(ctx)
	_, err := result.Unwrap()
	b.record(err)
	return result
}

// BreakerStage wraps an fn.Stage with circuit breaker protection. A nil
// breaker returns stage unchanged.
func BreakerStage[In, Out any](b *Breaker, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	if b == nil {
		return stage
	}
	return func(ctx context.Context, in In) fn.Result[Out] {
		return CallResult(b, ctx, func(ctx context.Context) fn.Result[Out] {
			return stage(ctx, in)
		})
	}
}
