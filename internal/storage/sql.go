package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
    id BIGINT PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);
`

// SQLStore хранит данные в Postgres (lib/pq) или SQLite (modernc).
// Запросы используют $N плейсхолдеры и ON CONFLICT, понятные обоим диалектам.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore открывает базу. driver: "postgres" или "sqlite".
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// :memory: живет в рамках одного соединения
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) GetCandidate(ctx context.Context, id int64) (CandidateRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM candidates WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return CandidateRecord{}, ErrNotFound
	}
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("get candidate %d: %w", id, err)
	}

	rec := DefaultRecord()
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return CandidateRecord{}, fmt.Errorf("decode candidate %d: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStore) SaveCandidate(ctx context.Context, id int64, rec CandidateRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode candidate %d: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		id, string(data))
	if err != nil {
		return fmt.Errorf("save candidate %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) DeleteCandidate(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM candidates WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete candidate %d: %w", id, err)
	}
	return nil
}

func (s *SQLStore) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return values, nil
}

func (s *SQLStore) MergeSettings(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (name, value) VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
			k, v)
		if err != nil {
			return fmt.Errorf("merge setting %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return nil
}

func (s *SQLStore) IncrementCounter(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1`,
		name)
	if err != nil {
		return fmt.Errorf("increment %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Counters(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM counters")
	if err != nil {
		return nil, fmt.Errorf("get counters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
