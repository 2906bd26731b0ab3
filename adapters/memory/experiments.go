// Package memory provides the process-resident store adapters backing
// the engine: experiment registry, sticky assignment table, append-only
// metric ledger, flag registry and a static audience resolver. All of
// them guard their maps with RWMutexes and hand out copies, never live
// references.
package memory

import (
	"context"
	"sync"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
	"gosplit/internal/errors"
)

// ExperimentStore is an in-memory ports.ExperimentStore.
type ExperimentStore struct {
	mu   sync.RWMutex
	byID map[core.ExperimentID]*experiment.Experiment
}

// NewExperimentStore creates an empty experiment store.
func NewExperimentStore() *ExperimentStore {
	return &ExperimentStore{
		byID: make(map[core.ExperimentID]*experiment.Experiment),
	}
}

// Put stores a copy of the experiment, replacing any previous record
// with the same id.
func (s *ExperimentStore) Put(ctx context.Context, exp *experiment.Experiment) error {
	if exp == nil || exp.ID.IsEmpty() {
		return errors.New(errors.CodeInvalidConfig, "experiment id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[exp.ID] = exp.Clone()
	return nil
}

// Get returns a copy of the experiment, or nil when unknown.
func (s *ExperimentStore) Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id].Clone(), nil
}

// List returns copies of all experiments in unspecified order.
func (s *ExperimentStore) List(ctx context.Context) ([]*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*experiment.Experiment, 0, len(s.byID))
	for _, exp := range s.byID {
		out = append(out, exp.Clone())
	}
	return out, nil
}

// Update applies fn to the stored record under the write lock.
func (s *ExperimentStore) Update(ctx context.Context, id core.ExperimentID, fn func(*experiment.Experiment) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.byID[id]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "experiment %s not found", id)
	}
	return fn(exp)
}
