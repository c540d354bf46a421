package fn

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/ailegalmate/legalmate/pkg/fn"

// Stage is a function that transforms In to Out within a context.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Lift adapts a (value, error) function into a Stage.
func Lift[In, Out any](f func(context.Context, In) (Out, error)) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return FromPair(f(ctx, in))
	}
}

// Then composes two stages, short-circuiting on error.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) Result[C] {
		r := first(ctx, a)
		if r.IsErr() {
			_, err := r.Unwrap()
			return Err[C](err)
		}
		v, _ := r.Unwrap()
		return second(ctx, v)
	}
}

// Timeout runs stage under its own deadline. d <= 0 disables the deadline.
func Timeout[In, Out any](d time.Duration, stage Stage[In, Out]) Stage[In, Out] {
	if d <= 0 {
		return stage
	}
	return func(ctx context.Context, in In) Result[Out] {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return stage(ctx, in)
	}
}

// WrapErr rewrites errors returned by stage with f.
func WrapErr[In, Out any](f func(error) error, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return stage(ctx, in).MapErr(f)
	}
}

// TracedStage wraps a stage with OTel span creation.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer(tracerName).Start(ctx, name)
		defer span.End()
		result := stage(ctx, in)
		if result.IsErr() {
			_, err := result.Unwrap()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return result
	}
}
