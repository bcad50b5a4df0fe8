package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func failing(context.Context) error { return errBackend }
func succeeding(context.Context) error { return nil }

func newTestBreaker(opts BreakerOpts) (*Breaker, *time.Time) {
	b := NewBreaker(opts)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Call(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker should reject, got %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	*now = now.Add(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open after timeout", b.State())
	}
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatal(err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed after successful probe", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	*now = now.Add(time.Minute)
	b.Call(ctx, failing) // probe fails
	if b.State() != StateOpen {
		t.Errorf("state = %s, want open after failed probe", b.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	b.Call(ctx, succeeding)
	b.Call(ctx, failing)
	if b.State() != StateClosed {
		t.Errorf("non-consecutive failures must not trip the breaker")
	}
}
