package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит кандидатов JSON-строками, настройки хешем, счетчики через HINCRBY
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "qualifier"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) candidateKey(id int64) string {
	return s.prefix + ":candidate:" + strconv.FormatInt(id, 10)
}

func (s *RedisStore) settingsKey() string { return s.prefix + ":settings" }

func (s *RedisStore) countersKey() string { return s.prefix + ":counters" }

func (s *RedisStore) GetCandidate(ctx context.Context, id int64) (CandidateRecord, error) {
	raw, err := s.client.Get(ctx, s.candidateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CandidateRecord{}, ErrNotFound
	}
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("get candidate %d: %w", id, err)
	}

	rec := DefaultRecord()
	if err := json.Unmarshal(raw, &rec); err != nil {
		return CandidateRecord{}, fmt.Errorf("decode candidate %d: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) SaveCandidate(ctx context.Context, id int64, rec CandidateRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode candidate %d: %w", id, err)
	}
	if err := s.client.Set(ctx, s.candidateKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("save candidate %d: %w", id, err)
	}
	return nil
}

func (s *RedisStore) DeleteCandidate(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, s.candidateKey(id)).Err(); err != nil {
		return fmt.Errorf("delete candidate %d: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetSettings(ctx context.Context) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.settingsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return values, nil
}

func (s *RedisStore) MergeSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	if err := s.client.HSet(ctx, s.settingsKey(), args...).Err(); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrementCounter(ctx context.Context, name string) error {
	if err := s.client.HIncrBy(ctx, s.countersKey(), name, 1).Err(); err != nil {
		return fmt.Errorf("increment %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Counters(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.countersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get counters: %w", err)
	}

	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s has invalid value %q: %w", k, v, err)
		}
		out[k] = n
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
