package memory

import (
	"context"
	"sync"

	"gosplit/domain/core"
	"gosplit/domain/flag"
	"gosplit/internal/errors"
)

// FlagStore is an in-memory ports.FlagStore.
type FlagStore struct {
	mu    sync.RWMutex
	byKey map[core.FlagKey]*flag.Flag
}

// NewFlagStore creates an empty flag store.
func NewFlagStore() *FlagStore {
	return &FlagStore{byKey: make(map[core.FlagKey]*flag.Flag)}
}

// Put stores a copy of the flag, replacing any previous record.
func (s *FlagStore) Put(ctx context.Context, f *flag.Flag) error {
	if f == nil || f.Key.IsEmpty() {
		return errors.New(errors.CodeInvalidConfig, "flag key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[f.Key] = f.Clone()
	return nil
}

// Get returns a copy of the flag, or nil when unknown.
func (s *FlagStore) Get(ctx context.Context, key core.FlagKey) (*flag.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[key].Clone(), nil
}

// List returns copies of all flags in unspecified order.
func (s *FlagStore) List(ctx context.Context) ([]*flag.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*flag.Flag, 0, len(s.byKey))
	for _, f := range s.byKey {
		out = append(out, f.Clone())
	}
	return out, nil
}

// Update applies fn to the stored flag under the write lock.
func (s *FlagStore) Update(ctx context.Context, key core.FlagKey, fn func(*flag.Flag) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byKey[key]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "flag %s not found", key)
	}
	return fn(f)
}
