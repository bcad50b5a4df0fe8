package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestResult(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok should be ok")
	}
	if v, err := ok.Unwrap(); v != 42 || err != nil {
		t.Errorf("Unwrap = %v, %v", v, err)
	}

	boom := errors.New("boom")
	bad := Err[int](boom)
	if bad.IsOk() || !bad.IsErr() {
		t.Error("Err should be err")
	}
	if _, err := bad.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("Unwrap err = %v", err)
	}
	if got := bad.UnwrapOr(7); got != 7 {
		t.Errorf("UnwrapOr = %d", got)
	}
	if got := ok.UnwrapOr(7); got != 42 {
		t.Errorf("UnwrapOr = %d", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair("x", nil); r.IsErr() {
		t.Error("nil error should be ok")
	}
	if r := FromPair("x", errors.New("e")); r.IsOk() {
		t.Error("non-nil error should be err")
	}
}

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(n int) int { return n * n })
	want := []int{1, 4, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[0]) != 2 || len(chunks[2]) != 1 {
		t.Errorf("chunks = %v", chunks)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Error("n <= 0 should return nil")
	}
	if Chunk([]int(nil), 3) != nil {
		t.Error("empty input should return nil")
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	got := ParMap(items, 8, func(n int) int { return n * 2 })
	for i, v := range got {
		if v != i*2 {
			t.Fatalf("got[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestParMapBoundsConcurrency(t *testing.T) {
	var active, peak int64
	items := make([]int, 50)
	ParMap(items, 4, func(int) int {
		n := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&active, -1)
		return 0
	})
	if p := atomic.LoadInt64(&peak); p > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", p)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}
	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Err[string](errors.New("transient"))
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" {
		t.Fatalf("Unwrap = %v, %v", v, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}
	boom := errors.New("boom")
	calls := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Err[int](boom)
	})
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := RetryOpts{MaxAttempts: 10, InitialWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		cancel()
		return Err[int](errors.New("transient"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryStage(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}
	calls := 0
	stage := RetryStage(opts, func(_ context.Context, in int) Result[int] {
		calls++
		if calls == 1 {
			return Err[int](errors.New("transient"))
		}
		return Ok(in + 1)
	})
	if v, err := stage(context.Background(), 5).Unwrap(); err != nil || v != 6 {
		t.Fatalf("Unwrap = %v, %v", v, err)
	}
}

func TestTracedStagePassesThrough(t *testing.T) {
	stage := TracedStage("test.stage", func(_ context.Context, in string) Result[string] {
		return Ok(in + "!")
	})
	if v, err := stage(context.Background(), "hi").Unwrap(); err != nil || v != "hi!" {
		t.Fatalf("Unwrap = %v, %v", v, err)
	}

	boom := errors.New("boom")
	bad := TracedStage("test.stage", func(_ context.Context, _ string) Result[string] {
		return Err[string](boom)
	})
	if _, err := bad(context.Background(), "hi").Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
