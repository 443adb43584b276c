package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// nextValueSQL increments a named counter and returns its previous value in
// a single statement, creating the counter on first use.
const nextValueSQL = `
	INSERT INTO billing_sequence (name, value) VALUES ($1, 1)
	ON CONFLICT (name) DO UPDATE SET value = billing_sequence.value + 1
	RETURNING value - 1
`

// SQLiteSequence is a billing counter stored in the sqlite database.
type SQLiteSequence struct {
	db   *sql.DB
	name string
}

// NewSQLiteSequence returns the named counter of db.
func NewSQLiteSequence(db *sql.DB, name string) *SQLiteSequence {
	return &SQLiteSequence{db: db, name: name}
}

func (s *SQLiteSequence) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, strings.ReplaceAll(nextValueSQL, "$1", "?"), s.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment sqlite sequence %q: %w", s.name, err)
	}
	return n, nil
}

// Current returns the next value Next will hand out without consuming it.
func (s *SQLiteSequence) Current(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(value), 0) FROM billing_sequence WHERE name = ?`, s.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("read sqlite sequence %q: %w", s.name, err)
	}
	return n, nil
}

// PostgresSequence is a billing counter shared by several application
// instances through PostgreSQL.
type PostgresSequence struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresSequence returns the named counter stored in pool.
func NewPostgresSequence(pool *pgxpool.Pool, name string) *PostgresSequence {
	return &PostgresSequence{pool: pool, name: name}
}

// EnsureSchema creates the counter table when it does not exist.
func (s *PostgresSequence) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS billing_sequence (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("create billing_sequence table: %w", err)
	}
	return nil
}

func (s *PostgresSequence) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, nextValueSQL, s.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment postgres sequence %q: %w", s.name, err)
	}
	return n, nil
}

// RedisSequence is a billing counter kept in Redis.
type RedisSequence struct {
	client *redis.Client
	key    string
}

// NewRedisSequence returns the counter stored under "billing:sequence:<name>".
func NewRedisSequence(client *redis.Client, name string) *RedisSequence {
	return &RedisSequence{client: client, key: "billing:sequence:" + name}
}

func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment redis sequence %q: %w", s.key, err)
	}
	return n - 1, nil
}
