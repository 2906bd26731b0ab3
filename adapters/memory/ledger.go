package memory

import (
	"context"
	"sync"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// MetricLedger is an in-memory append-only event ledger, one slice per
// experiment. Reads copy the slice under the lock so aggregation always
// walks a stable snapshot while writers keep appending.
type MetricLedger struct {
	mu     sync.RWMutex
	events map[core.ExperimentID][]experiment.MetricEvent
}

// NewMetricLedger creates an empty ledger.
func NewMetricLedger() *MetricLedger {
	return &MetricLedger{
		events: make(map[core.ExperimentID][]experiment.MetricEvent),
	}
}

// Append records one event. Events are never mutated or deleted.
func (l *MetricLedger) Append(ctx context.Context, event experiment.MetricEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[event.ExperimentID] = append(l.events[event.ExperimentID], event)
	return nil
}

// Events returns a snapshot of all events for an experiment in append
// order.
func (l *MetricLedger) Events(ctx context.Context, id core.ExperimentID) ([]experiment.MetricEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stored := l.events[id]
	out := make([]experiment.MetricEvent, len(stored))
	copy(out, stored)
	return out, nil
}

// Len reports the number of events recorded for an experiment.
func (l *MetricLedger) Len(id core.ExperimentID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[id])
}
