package store

import (
	"context"
	"time"

	"iopps-workers/internal/common/logger"
)

// Factory opens per-member stores over one shared Storage.
type Factory struct {
	storage Storage
	prefix  string
	timeout time.Duration
	logger  logger.Logger
}

func NewFactory(storage Storage, prefix string, persistTimeout time.Duration, log logger.Logger) *Factory {
	return &Factory{
		storage: storage,
		prefix:  prefix,
		timeout: persistTimeout,
		logger:  log,
	}
}

// Open returns an initialized store for userID.
func (f *Factory) Open(ctx context.Context, userID string) *Store {
	s := New(f.storage, UserKey(f.prefix, userID), f.logger, WithPersistTimeout(f.timeout))
	s.Initialize(ctx)
	return s
}

// Prefix is the key prefix passed to UserKey.
func (f *Factory) Prefix() string {
	return f.prefix
}
