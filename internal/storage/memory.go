package storage

import (
	"context"
	"sync"
)

// MemoryStore хранит данные в памяти процесса. Используется в simulate и тестах.
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[int64]CandidateRecord
	settings   map[string]string
	counters   map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[int64]CandidateRecord),
		settings:   make(map[string]string),
		counters:   make(map[string]int64),
	}
}

func (s *MemoryStore) GetCandidate(_ context.Context, id int64) (CandidateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.candidates[id]
	if !ok {
		return CandidateRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) SaveCandidate(_ context.Context, id int64, rec CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates[id] = rec.Clone()
	return nil
}

func (s *MemoryStore) DeleteCandidate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.candidates, id)
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.settings) == 0 {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) MergeSettings(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.settings[k] = v
	}
	return nil
}

func (s *MemoryStore) IncrementCounter(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	return nil
}

func (s *MemoryStore) Counters(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
