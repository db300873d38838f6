// Package store holds one member's job filter state and saves it through a Storage.
//
// Storage failures never reach the caller. A failed load leaves the default state in place
// and a failed save keeps the new in-memory state; both are logged and counted.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/metrics"
	"iopps-workers/internal/common/validation"
	"iopps-workers/internal/filters"
	"iopps-workers/internal/models"
)

const defaultPersistTimeout = 3 * time.Second

type Store struct {
	storage Storage
	key     string
	logger  logger.Logger
	timeout time.Duration

	initOnce sync.Once
	mu       sync.RWMutex
	state    models.FilterState
	loading  bool
	loadErr  error
	saveErr  error
}

type Option func(*Store)

// WithPersistTimeout bounds each storage call.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a store in the loading state holding the default filters.
func New(storage Storage, key string, log logger.Logger, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		storage: storage,
		key:     key,
		logger:  log.WithFields(map[string]interface{}{"storageKey": key}),
		timeout: defaultPersistTimeout,
		state:   models.DefaultFilterState(),
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string {
	return s.key
}

// Initialize loads the saved state once. Later calls return immediately.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		loaded, ok, err := s.load(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if ok {
			s.state = loaded
		}
		s.loadErr = err
		s.loading = false
	})
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Filters returns a copy of the current state.
func (s *Store) Filters() models.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// LoadErr returns the storage error seen by Initialize, if any. Unreadable documents are not errors.
func (s *Store) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// SaveErr returns the error from the most recent Apply or Clear, if it failed to save.
func (s *Store) SaveErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveErr
}

func (s *Store) ActiveFilterCount() int {
	return filters.ActiveFilterCount(s.Filters())
}

// UpdateField replaces one field in memory without saving. value may be a typed Go value
// or its decoded JSON form.
func (s *Store) UpdateField(field models.FilterField, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := setField(&next, field, value); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Apply replaces the state and saves it.
func (s *Store) Apply(ctx context.Context, state models.FilterState) {
	snapshot := state.Clone()

	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()

	err := s.persist(ctx, snapshot)

	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// Clear resets to the default state and saves it.
func (s *Store) Clear(ctx context.Context) {
	s.Apply(ctx, models.DefaultFilterState())
}

func (s *Store) load(ctx context.Context) (models.FilterState, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		metrics.FilterStateStorageErrors.WithLabelValues("load").Inc()
		s.logger.Warn("Failed to load saved filters, using defaults", map[string]interface{}{"error": err})
		return models.FilterState{}, false, err
	}
	if !found {
		return models.FilterState{}, false, nil
	}

	state, err := decodeState([]byte(raw))
	if err != nil {
		metrics.FilterStateStorageErrors.WithLabelValues("decode").Inc()
		s.logger.Warn("Saved filters are unreadable, using defaults", map[string]interface{}{"error": err})
		return models.FilterState{}, false, nil
	}

	s.logger.Debug("Loaded saved filters", map[string]interface{}{
		"activeFilterCount": filters.ActiveFilterCount(state),
	})
	return state, true, nil
}

func (s *Store) persist(ctx context.Context, state models.FilterState) error {
	data, err := json.Marshal(state)
	if err != nil {
		metrics.FilterStateStorageErrors.WithLabelValues("save").Inc()
		s.logger.Error("Failed to encode filters", map[string]interface{}{"error": err})
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		metrics.FilterStateStorageErrors.WithLabelValues("save").Inc()
		s.logger.Error("Failed to save filters", map[string]interface{}{"error": err})
		return err
	}
	return nil
}

// decodeState validates a persisted document and decodes it over the defaults.
func decodeState(raw []byte) (models.FilterState, error) {
	result, err := validation.ValidateFilterState(raw)
	if err != nil {
		return models.FilterState{}, err
	}
	if !result.Valid {
		return models.FilterState{}, fmt.Errorf("schema: %s", result.Error())
	}

	state := models.DefaultFilterState()
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.FilterState{}, err
	}
	return state.Clone(), nil
}

func setField(state *models.FilterState, field models.FilterField, value interface{}) error {
	switch field {
	case models.FieldSalaryMin:
		v, err := decodeSalary(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		state.SalaryMin = v
	case models.FieldSalaryMax:
		v, err := decodeSalary(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		state.SalaryMax = v
	case models.FieldRemoteWork:
		var v []models.RemoteWorkOption
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		for _, o := range v {
			if !o.Valid() {
				return fmt.Errorf("%s: unknown value %q", field, o)
			}
		}
		state.RemoteWork = append([]models.RemoteWorkOption{}, v...)
	case models.FieldJobTypes:
		var v []models.JobTypeOption
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		for _, o := range v {
			if !o.Valid() {
				return fmt.Errorf("%s: unknown value %q", field, o)
			}
		}
		state.JobTypes = append([]models.JobTypeOption{}, v...)
	case models.FieldExperienceLevel:
		var v []models.ExperienceLevelOption
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		for _, o := range v {
			if !o.Valid() {
				return fmt.Errorf("%s: unknown value %q", field, o)
			}
		}
		state.ExperienceLevel = append([]models.ExperienceLevelOption{}, v...)
	case models.FieldPostedDate:
		var v models.PostedDateOption
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		state.PostedDate = v
	case models.FieldIndigenousOwnedOnly:
		var v bool
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		state.IndigenousOwnedOnly = v
	case models.FieldIndustries:
		var v []string
		if err := decodeValue(value, &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		state.Industries = append([]string{}, v...)
	default:
		return fmt.Errorf("unknown filter field %q", field)
	}
	return nil
}

func decodeSalary(value interface{}) (*int, error) {
	if value == nil {
		return nil, nil
	}
	var v *int
	if err := decodeValue(value, &v); err != nil {
		return nil, err
	}
	if v != nil && *v < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return v, nil
}

// decodeValue converts value into target through its JSON form.
func decodeValue(value interface{}, target interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
