package ports

import (
	"context"

	"gosplit/domain/experiment"
)

// ResultArchive is a write-only sink for completed-experiment results.
// The engine never reads archived rows back; process-resident state
// remains the source of truth, and the archive exists for offline
// analysis.
type ResultArchive interface {
	ArchiveResult(ctx context.Context, exp *experiment.Experiment, result *experiment.Result) error
}
