package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"qualifier-bot/internal/storage"
)

// Имена счетчиков в хранилище
const (
	CounterInterviewsStarted = "total_interviews_started"
	CounterPassed            = "total_passed"
)

// Submitter отправляет отложенную задачу, worker.Pool удовлетворяет интерфейсу
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Snapshot — значения счетчиков на момент чтения
type Snapshot struct {
	InterviewsStarted int64
	Passed            int64
	LastUpdateTime    time.Time
	Persisted         bool
}

// Metrics ведет счетчики в памяти и отложенно сохраняет их в хранилище.
// Потерянные инкременты допустимы.
type Metrics struct {
	mu                sync.RWMutex
	InterviewsStarted int64
	Passed            int64
	LastUpdateTime    time.Time

	store  storage.CounterStore
	jobs   Submitter
	logger *zap.Logger
}

func NewMetrics(store storage.CounterStore, jobs Submitter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{
		LastUpdateTime: time.Now(),
		store:          store,
		jobs:           jobs,
		logger:         logger,
	}
}

func (m *Metrics) IncrementInterviewsStarted() {
	m.mu.Lock()
	m.InterviewsStarted++
	m.LastUpdateTime = time.Now()
	m.mu.Unlock()

	m.persist(CounterInterviewsStarted)
}

func (m *Metrics) IncrementPassed() {
	m.mu.Lock()
	m.Passed++
	m.LastUpdateTime = time.Now()
	m.mu.Unlock()

	m.persist(CounterPassed)
}

func (m *Metrics) persist(name string) {
	if m.store == nil || m.jobs == nil {
		return
	}
	m.jobs.Submit("counter:"+name, func(ctx context.Context) error {
		return m.store.IncrementCounter(ctx, name)
	})
}

// GetSnapshot возвращает счетчики процесса
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		InterviewsStarted: m.InterviewsStarted,
		Passed:            m.Passed,
		LastUpdateTime:    m.LastUpdateTime,
	}
}

// Snapshot читает сохраненные счетчики, при ошибке хранилища
// возвращает счетчики процесса
func (m *Metrics) Snapshot(ctx context.Context) Snapshot {
	local := m.GetSnapshot()
	if m.store == nil {
		return local
	}

	counters, err := m.store.Counters(ctx)
	if err != nil {
		m.logger.Warn("failed to read persisted counters", zap.Error(err))
		return local
	}

	return Snapshot{
		InterviewsStarted: counters[CounterInterviewsStarted],
		Passed:            counters[CounterPassed],
		LastUpdateTime:    local.LastUpdateTime,
		Persisted:         true,
	}
}
