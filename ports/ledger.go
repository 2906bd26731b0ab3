package ports

import (
	"context"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// MetricWriterPort provides append-only write access to the metric
// ledger. This is the only way to record events; nothing mutates or
// deletes them.
type MetricWriterPort interface {
	Append(ctx context.Context, event experiment.MetricEvent) error
}

// MetricReaderPort provides read access for aggregation. Events must
// return a stable snapshot: a single aggregation pass never observes an
// event twice nor loses one it already counted, even while writers keep
// appending.
type MetricReaderPort interface {
	Events(ctx context.Context, id core.ExperimentID) ([]experiment.MetricEvent, error)
}

// MetricLedger combines write and read access to the event ledger.
type MetricLedger interface {
	MetricWriterPort
	MetricReaderPort
}
