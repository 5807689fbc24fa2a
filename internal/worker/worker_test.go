package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherPreservesPerKeyOrder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(4, 16)

	var mu sync.Mutex
	seen := make(map[int64][]int)

	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2, 3, 17} {
			key, i := key, i
			err := d.Dispatch(context.Background(), key, func() {
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	d.Close()

	for key, order := range seen {
		if len(order) != 50 {
			t.Fatalf("key %d: expected 50 jobs, got %d", key, len(order))
		}
		for i, v := range order {
			if v != i {
				t.Fatalf("key %d: job %d ran at position %d", key, v, i)
			}
		}
	}
}

func TestDispatcherRunsKeysConcurrently(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(2, 1)
	defer d.Close()

	release := make(chan struct{})
	done := make(chan struct{})

	// Ключ 0 блокирует свой шард, ключ 1 должен выполниться независимо
	if err := d.Dispatch(context.Background(), 0, func() { <-release }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Dispatch(context.Background(), 1, func() { close(done) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job for another key was blocked")
	}
	close(release)
}

func TestDispatcherNegativeKeysAndClose(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(3, 1)

	ran := make(chan struct{})
	if err := d.Dispatch(context.Background(), -100500, func() { close(ran) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-ran

	d.Close()
	if err := d.Dispatch(context.Background(), 1, func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcherRespectsContext(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 0)
	release := make(chan struct{})
	started := make(chan struct{})
	if err := d.Dispatch(context.Background(), 1, func() { close(started); <-release }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Dispatch(ctx, 1, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(release)
	d.Close()
}

func TestPoolRunsJobs(t *testing.T) {
	t.Parallel()

	p := NewPool(2, 10, time.Second, zap.NewNop())

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		if !p.Submit("inc", func(context.Context) error {
			count.Add(1)
			return nil
		}) {
			t.Fatalf("job %d unexpectedly dropped", i)
		}
	}

	p.Close()
	if count.Load() != 10 {
		t.Fatalf("expected 10 jobs, got %d", count.Load())
	}
}

func TestPoolDropsWhenFull(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	p := NewPool(1, 1, 0, zap.New(core))

	release := make(chan struct{})
	started := make(chan struct{})

	p.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if !p.Submit("queued", func(context.Context) error { return nil }) {
		t.Fatalf("expected job to fit in the queue")
	}
	if p.Submit("dropped", func(context.Context) error { return nil }) {
		t.Fatalf("expected job to be dropped")
	}

	close(release)
	p.Close()

	if observed.FilterMessage("detached job dropped: queue is full").Len() != 1 {
		t.Fatalf("expected drop to be logged")
	}
	if p.Submit("late", func(context.Context) error { return nil }) {
		t.Fatalf("expected closed pool to reject jobs")
	}
}

func TestPoolLogsJobErrors(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	p := NewPool(1, 1, time.Second, zap.New(core))

	p.Submit("failing", func(context.Context) error { return errors.New("boom") })
	p.Close()

	entries := observed.FilterMessage("detached job failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["job"] != "failing" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}
