package ports

import (
	"context"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// ExperimentStore is the registry of experiment definitions and their
// lifecycle state. Get returns nil without error for an unknown id;
// callers degrade to "no experiment applies".
type ExperimentStore interface {
	Put(ctx context.Context, exp *experiment.Experiment) error
	Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error)
	List(ctx context.Context) ([]*experiment.Experiment, error)

	// Update applies fn to the stored record under the store's lock so
	// status transitions are atomic. Returns a NOT_FOUND error for an
	// unknown id; fn's error aborts the update and is passed through.
	Update(ctx context.Context, id core.ExperimentID, fn func(*experiment.Experiment) error) error
}
