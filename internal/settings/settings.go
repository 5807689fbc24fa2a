package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"qualifier-bot/internal/storage"
)

// Ключи настроек
const (
	KeyVideoLink        = "video_link"
	KeyAdminDisplayName = "admin_display_name"
	KeyFormLink         = "form_link"
	KeySupportLink      = "support_link"
)

// Defaults возвращает значения по умолчанию
func Defaults() map[string]string {
	return map[string]string{
		KeyVideoLink:        "https://t.me/skyzoneit/6300",
		KeyAdminDisplayName: "এডমিন",
		KeyFormLink:         "https://forms.gle/TYdZFiFEJcrDcD2r5",
		KeySupportLink:      "https://t.me/skyzoneit",
	}
}

// Keys возвращает известные ключи в алфавитном порядке
func Keys() []string {
	defaults := Defaults()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known сообщает, известен ли ключ
func Known(key string) bool {
	_, ok := Defaults()[key]
	return ok
}

// Submitter отправляет отложенную задачу
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Cache хранит настройки в памяти. Чтение не обращается к хранилищу,
// запись сначала меняет память, потом отложенно сохраняет значение.
type Cache struct {
	mu       sync.RWMutex
	values   map[string]string
	versions map[string]uint64

	// persistMu выстраивает записи в хранилище в очередь, persisted
	// хранит последнюю записанную версию ключа
	persistMu sync.Mutex
	persisted map[string]uint64

	store  storage.SettingsStore
	jobs   Submitter
	logger *zap.Logger
}

func NewCache(store storage.SettingsStore, jobs Submitter, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		values:    Defaults(),
		versions:  make(map[string]uint64),
		persisted: make(map[string]uint64),
		store:     store,
		jobs:      jobs,
		logger:    logger,
	}
}

// Load вызывается один раз при старте. Сохраненные значения накладываются
// на значения по умолчанию. Если сохраненных нет, значения по умолчанию
// записываются в хранилище. Ошибка хранилища не фатальна.
func (c *Cache) Load(ctx context.Context) error {
	persisted, err := c.store.GetSettings(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := c.store.MergeSettings(ctx, c.All()); err != nil {
			c.logger.Warn("failed to write default settings", zap.Error(err))
			return fmt.Errorf("write default settings: %w", err)
		}
		c.logger.Info("default settings written")
		return nil
	case err != nil:
		c.logger.Warn("settings storage unavailable, using defaults", zap.Error(err))
		return fmt.Errorf("load settings: %w", err)
	}

	c.mu.Lock()
	for k, v := range persisted {
		c.values[k] = v
	}
	c.mu.Unlock()

	c.logger.Info("settings loaded", zap.Int("keys", len(persisted)))
	return nil
}

func (c *Cache) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// All возвращает копию всех настроек
func (c *Cache) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Set обновляет значение в памяти и ставит сохранение в очередь.
// Вызывающий не ждет сохранения.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	c.values[key] = value
	c.versions[key]++
	c.mu.Unlock()

	if c.jobs == nil {
		return
	}
	submitted := c.jobs.Submit("settings:"+key, func(ctx context.Context) error {
		return c.persist(ctx, key)
	})
	if !submitted {
		c.logger.Warn("settings persist skipped", zap.String("key", key))
	}
}

// persist записывает текущее значение ключа. Задачи могут выполняться
// в любом порядке: запись идет под persistMu и берет значение из памяти,
// задача с уже записанной версией ничего не делает.
func (c *Cache) persist(ctx context.Context, key string) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	value, version := c.values[key], c.versions[key]
	c.mu.RUnlock()

	if version <= c.persisted[key] {
		return nil
	}
	if err := c.store.MergeSettings(ctx, map[string]string{key: value}); err != nil {
		return err
	}
	c.persisted[key] = version
	return nil
}
