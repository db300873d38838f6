package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the storage key used by the mobile client for saved filters.
const DefaultKey = "@iopps_job_filters"

// Storage is a key-value medium for serialized filter state. found is false when no value is stored.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// UserKey scopes prefix to one member. An empty userID yields the prefix itself.
func UserKey(prefix, userID string) string {
	if prefix == "" {
		prefix = DefaultKey
	}
	if userID == "" {
		return prefix
	}
	return prefix + ":" + userID
}

// RedisStorage keeps each state under a plain string key.
type RedisStorage struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStorage stores values with the given TTL; zero keeps them forever.
func NewRedisStorage(client redis.Cmdable, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

const (
	selectFiltersSQL = `SELECT filters FROM user_filter_preferences WHERE storage_key = $1`
	upsertFiltersSQL = `INSERT INTO user_filter_preferences (storage_key, filters, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (storage_key) DO UPDATE SET filters = EXCLUDED.filters, updated_at = NOW()`
)

// PostgresStorage keeps states in the user_filter_preferences table.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var filters []byte
	err := s.db.QueryRowContext(ctx, selectFiltersSQL, key).Scan(&filters)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select filters %s: %w", key, err)
	}
	return string(filters), true, nil
}

func (s *PostgresStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertFiltersSQL, key, value); err != nil {
		return fmt.Errorf("upsert filters %s: %w", key, err)
	}
	return nil
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
