package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// CandidateStore хранит записи кандидатов. Save перезаписывает запись целиком.
type CandidateStore interface {
	GetCandidate(ctx context.Context, id int64) (CandidateRecord, error)
	SaveCandidate(ctx context.Context, id int64, rec CandidateRecord) error
	DeleteCandidate(ctx context.Context, id int64) error
}

// SettingsStore хранит настройки. MergeSettings обновляет только переданные ключи.
type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	MergeSettings(ctx context.Context, values map[string]string) error
}

// CounterStore хранит монотонные счетчики
type CounterStore interface {
	IncrementCounter(ctx context.Context, name string) error
	Counters(ctx context.Context) (map[string]int64, error)
}

type Store interface {
	CandidateStore
	SettingsStore
	CounterStore
	Close() error
}
