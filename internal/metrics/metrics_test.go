package metrics

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"qualifier-bot/internal/storage"
)

// syncJobs выполняет задачи сразу, чтобы тест не зависел от планировщика
type syncJobs struct{}

func (syncJobs) Submit(_ string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

type failingCounters struct{}

func (failingCounters) IncrementCounter(context.Context, string) error {
	return errors.New("storage down")
}

func (failingCounters) Counters(context.Context) (map[string]int64, error) {
	return nil, errors.New("storage down")
}

func TestMetricsPersistsCounters(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	m := NewMetrics(store, syncJobs{}, zap.NewNop())

	m.IncrementInterviewsStarted()
	m.IncrementInterviewsStarted()
	m.IncrementPassed()

	snap := m.Snapshot(context.Background())
	if !snap.Persisted {
		t.Fatalf("expected persisted snapshot")
	}
	if snap.InterviewsStarted != 2 || snap.Passed != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	counters, _ := store.Counters(context.Background())
	if counters[CounterInterviewsStarted] != 2 || counters[CounterPassed] != 1 {
		t.Fatalf("unexpected stored counters: %v", counters)
	}
}

func TestMetricsFallsBackToMemory(t *testing.T) {
	t.Parallel()

	m := NewMetrics(failingCounters{}, syncJobs{}, zap.NewNop())

	m.IncrementInterviewsStarted()
	m.IncrementPassed()
	m.IncrementPassed()

	snap := m.Snapshot(context.Background())
	if snap.Persisted {
		t.Fatalf("expected in-memory snapshot")
	}
	if snap.InterviewsStarted != 1 || snap.Passed != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMetricsWithoutStore(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil, nil, nil)
	m.IncrementPassed()

	if got := m.Snapshot(context.Background()).Passed; got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
