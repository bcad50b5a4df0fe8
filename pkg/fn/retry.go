package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts bounds how long Retry keeps going: the attempt count, the first
// backoff delay, and the delay ceiling. Jitter spreads synchronized retries
// from concurrent callers.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry suits short remote calls inside a row-level timeout.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Retry runs f until it succeeds or opts.MaxAttempts is exhausted, doubling
// the delay between attempts up to opts.MaxWait. The last failed Result is
// returned on exhaustion; a context cancelled while waiting short-circuits
// with the context error.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	delay := opts.InitialWait
	for attempt := 1; ; attempt++ {
		last := f(ctx)
		if last.IsOk() || attempt >= opts.MaxAttempts {
			return last
		}

		wait := delay
		if opts.Jitter {
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()))
		}
		if wait > opts.MaxWait {
			wait = opts.MaxWait
		}
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(wait):
		}

		if delay *= 2; delay > opts.MaxWait {
			delay = opts.MaxWait
		}
	}
}

// RetryStage lifts Retry over a Stage, retrying with the same input.
func RetryStage[In, Out any](opts RetryOpts, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Retry(ctx, opts, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
