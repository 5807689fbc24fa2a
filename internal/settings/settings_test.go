package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"qualifier-bot/internal/storage"
	"qualifier-bot/internal/worker"
)

// queuedJobs копит задачи и выполняет их по запросу теста
type queuedJobs struct {
	mu   sync.Mutex
	jobs []func(ctx context.Context) error
}

func (q *queuedJobs) Submit(_ string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, fn)
	return true
}

func (q *queuedJobs) runAll(t *testing.T) {
	t.Helper()
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	for _, fn := range jobs {
		if err := fn(context.Background()); err != nil {
			t.Fatalf("unexpected job error: %v", err)
		}
	}
}

type brokenStore struct{}

func (brokenStore) GetSettings(context.Context) (map[string]string, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) MergeSettings(context.Context, map[string]string) error {
	return errors.New("connection refused")
}

// slowFirstWrite задерживает первую запись настроек
type slowFirstWrite struct {
	*storage.MemoryStore
	delay time.Duration
	once  sync.Once
}

func (s *slowFirstWrite) MergeSettings(ctx context.Context, values map[string]string) error {
	s.once.Do(func() { time.Sleep(s.delay) })
	return s.MemoryStore.MergeSettings(ctx, values)
}

func TestLoadWritesDefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	cache := NewCache(store, &queuedJobs{}, zap.NewNop())

	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persisted, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("expected defaults to be persisted: %v", err)
	}
	for k, v := range Defaults() {
		if persisted[k] != v {
			t.Fatalf("expected %s=%q in storage, got %q", k, v, persisted[k])
		}
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	if err := store.MergeSettings(context.Background(), map[string]string{KeyVideoLink: "https://v/1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache := NewCache(store, &queuedJobs{}, zap.NewNop())
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cache.Get(KeyVideoLink); got != "https://v/1" {
		t.Fatalf("expected persisted video link, got %q", got)
	}
	if got := cache.Get(KeyAdminDisplayName); got != Defaults()[KeyAdminDisplayName] {
		t.Fatalf("expected default admin name, got %q", got)
	}
}

func TestLoadKeepsDefaultsOnOutage(t *testing.T) {
	t.Parallel()

	cache := NewCache(brokenStore{}, &queuedJobs{}, zap.NewNop())

	if err := cache.Load(context.Background()); err == nil {
		t.Fatalf("expected error to be reported")
	}

	for k, v := range Defaults() {
		if cache.Get(k) != v {
			t.Fatalf("expected default for %s", k)
		}
	}
}

func TestSetIsVisibleBeforePersist(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	jobs := &queuedJobs{}
	cache := NewCache(store, jobs, zap.NewNop())

	cache.Set(KeyVideoLink, "https://v/new")

	// Чтение сразу после записи не обращается к хранилищу
	if got := cache.Get(KeyVideoLink); got != "https://v/new" {
		t.Fatalf("expected new value, got %q", got)
	}
	if _, err := store.GetSettings(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected nothing persisted before the job runs, got %v", err)
	}

	jobs.runAll(t)

	persisted, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted[KeyVideoLink] != "https://v/new" {
		t.Fatalf("expected persisted value, got %v", persisted)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected partial merge of a single key, got %v", persisted)
	}
}

func TestSetPersistsLatestValueWithConcurrentWorkers(t *testing.T) {
	t.Parallel()

	store := &slowFirstWrite{MemoryStore: storage.NewMemoryStore(), delay: 50 * time.Millisecond}
	pool := worker.NewPool(4, 16, time.Second, zap.NewNop())
	cache := NewCache(store, pool, zap.NewNop())

	cache.Set(KeyVideoLink, "https://v/old")
	time.Sleep(10 * time.Millisecond)
	cache.Set(KeyVideoLink, "https://v/new")
	pool.Close()

	persisted, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted[KeyVideoLink] != "https://v/new" {
		t.Fatalf("expected latest value in storage, got %q", persisted[KeyVideoLink])
	}
	if got := cache.Get(KeyVideoLink); got != "https://v/new" {
		t.Fatalf("expected latest value in memory, got %q", got)
	}
}

func TestSetSkipsStaleJob(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	jobs := &queuedJobs{}
	cache := NewCache(store, jobs, zap.NewNop())

	cache.Set(KeyFormLink, "https://f/1")
	cache.Set(KeyFormLink, "https://f/2")

	// Выполняем задачи в обратном порядке
	jobs.mu.Lock()
	first, second := jobs.jobs[0], jobs.jobs[1]
	jobs.jobs = nil
	jobs.mu.Unlock()

	if err := second(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	persisted, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if persisted[KeyFormLink] != "https://f/2" {
		t.Fatalf("expected stale job to be skipped, got %q", persisted[KeyFormLink])
	}
}

func TestAllReturnsCopy(t *testing.T) {
	t.Parallel()

	cache := NewCache(storage.NewMemoryStore(), nil, nil)
	all := cache.All()
	all[KeyVideoLink] = "mutated"

	if cache.Get(KeyVideoLink) == "mutated" {
		t.Fatalf("expected All to return a copy")
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	keys := Keys()
	if len(keys) != 4 || keys[0] != KeyAdminDisplayName {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if !Known(KeyFormLink) || Known("unknown") {
		t.Fatalf("unexpected Known result")
	}
}
