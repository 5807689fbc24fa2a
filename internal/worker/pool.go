package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job — отложенная задача. Ошибка только логируется.
type Job func(ctx context.Context) error

type jobWrapper struct {
	name string
	fn   Job
}

// Pool выполняет отложенные задачи без гарантий порядка и завершения.
// Submit никогда не блокирует вызывающего.
type Pool struct {
	jobs    chan jobWrapper
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool запускает workerCount обработчиков с очередью bufferSize.
// timeout ограничивает каждую задачу, 0 означает без ограничения.
func NewPool(workerCount, bufferSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		jobs:    make(chan jobWrapper, bufferSize),
		timeout: timeout,
		logger:  logger,
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job jobWrapper) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := job.fn(ctx); err != nil {
		p.logger.Warn("detached job failed", zap.String("job", job.name), zap.Error(err))
		return
	}
	p.logger.Debug("detached job done", zap.String("job", job.name))
}

// Submit ставит задачу в очередь. Возвращает false, если очередь
// заполнена или пул закрыт: задача отбрасывается.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.jobs <- jobWrapper{name: name, fn: fn}:
		return true
	default:
		p.logger.Warn("detached job dropped: queue is full", zap.String("job", name))
		return false
	}
}

// Close перестает принимать задачи и дожидается выполнения очереди
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
