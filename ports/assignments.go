package ports

import (
	"context"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// AssignmentTable holds sticky per-user, per-experiment variant
// assignments.
type AssignmentTable interface {
	// Get returns the existing assignment, or nil when the pair has
	// never been bucketed.
	Get(ctx context.Context, id core.ExperimentID, userID core.UserID) (*experiment.Assignment, error)

	// GetOrCreate resolves the check-then-insert race for first-time
	// assignment: assign runs under a lock scoped to the (experiment,
	// user) pair, and concurrent callers all observe the same record.
	// assign may return nil to decline recording (traffic-excluded
	// users stay eligible for a future call).
	GetOrCreate(ctx context.Context, id core.ExperimentID, userID core.UserID, assign func() (*experiment.Assignment, error)) (*experiment.Assignment, error)

	// ByExperiment returns a snapshot of all assignments for an
	// experiment, in no particular order.
	ByExperiment(ctx context.Context, id core.ExperimentID) ([]*experiment.Assignment, error)
}
