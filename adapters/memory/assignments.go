package memory

import (
	"context"
	"sync"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// assignmentShards spreads per-pair lock contention; the shard index reuses the
// deterministic bucketer, so it needs no extra hashing machinery.
const assignmentShards = 32

type assignKey struct {
	experiment core.ExperimentID
	user       core.UserID
}

type assignmentShard struct {
	mu   sync.RWMutex
	rows map[assignKey]*experiment.Assignment
}

// AssignmentTable is an in-memory ports.AssignmentTable with lock
// striping so concurrent first-time lookups for unrelated users do not
// serialize on a single mutex.
type AssignmentTable struct {
	shards [assignmentShards]*assignmentShard
}

// NewAssignmentTable creates an empty assignment table.
func NewAssignmentTable() *AssignmentTable {
	t := &AssignmentTable{}
	for i := range t.shards {
		t.shards[i] = &assignmentShard{rows: make(map[assignKey]*experiment.Assignment)}
	}
	return t
}

func (t *AssignmentTable) shard(key assignKey) *assignmentShard {
	idx := core.Bucket(key.experiment.String()+"/"+key.user.String()) % assignmentShards
	return t.shards[idx]
}

// Get returns a copy of the existing assignment, or nil.
func (t *AssignmentTable) Get(ctx context.Context, id core.ExperimentID, userID core.UserID) (*experiment.Assignment, error) {
	key := assignKey{experiment: id, user: userID}
	s := t.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[key]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

// GetOrCreate runs assign under the pair's shard lock, so two
// concurrent first-time calls for the same user observe the same
// sticky variant. assign returning nil records nothing.
func (t *AssignmentTable) GetOrCreate(ctx context.Context, id core.ExperimentID, userID core.UserID, assign func() (*experiment.Assignment, error)) (*experiment.Assignment, error) {
	key := assignKey{experiment: id, user: userID}
	s := t.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok {
		cp := *row
		return &cp, nil
	}
	row, err := assign()
	if err != nil || row == nil {
		return nil, err
	}
	stored := *row
	s.rows[key] = &stored
	cp := stored
	return &cp, nil
}

// ByExperiment returns a snapshot of all assignments for an experiment.
func (t *AssignmentTable) ByExperiment(ctx context.Context, id core.ExperimentID) ([]*experiment.Assignment, error) {
	var out []*experiment.Assignment
	for _, s := range t.shards {
		s.mu.RLock()
		for key, row := range s.rows {
			if key.experiment == id {
				cp := *row
				out = append(out, &cp)
			}
		}
		s.mu.RUnlock()
	}
	return out, nil
}
