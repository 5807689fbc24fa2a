package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher распределяет задачи по шардам по ключу.
// Задачи одного ключа выполняются последовательно, разных ключей параллельно.
// Число шардов ограничивает число одновременных обращений к хранилищу.
type Dispatcher struct {
	shards []chan func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(shardCount, queueSize int) *Dispatcher {
	if shardCount < 1 {
		shardCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &Dispatcher{shards: make([]chan func(), shardCount)}
	d.wg.Add(shardCount)
	for i := range d.shards {
		d.shards[i] = make(chan func(), queueSize)
		go d.loop(d.shards[i])
	}

	return d
}

func (d *Dispatcher) loop(queue chan func()) {
	defer d.wg.Done()
	for fn := range queue {
		fn()
	}
}

func (d *Dispatcher) shardFor(key int64) int {
	n := int64(len(d.shards))
	idx := key % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

// Dispatch ставит fn в очередь шарда ключа. Блокируется, пока в очереди
// нет места, или до отмены ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, key int64, fn func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.shards[d.shardFor(key)] <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close дожидается выполнения всех поставленных задач
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, queue := range d.shards {
		close(queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
