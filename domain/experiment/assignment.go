package experiment

import (
	"gosplit/domain/core"
)

// Assignment is a sticky (user, experiment) → variant record. It is
// created at most once per pair and never overwritten or deleted while
// the experiment is active, which is what makes repeated variant
// lookups idempotent for a given user.
type Assignment struct {
	ExperimentID core.ExperimentID `json:"experiment_id"`
	UserID       core.UserID       `json:"user_id"`
	VariantID    core.VariantID    `json:"variant_id"`
	AssignedAt   core.Timestamp    `json:"assigned_at"`
}

// MetricEvent is one raw observation in the ledger. The variant id is
// copied from the assignment at recording time, not re-derived later,
// so historical aggregation stays stable.
type MetricEvent struct {
	ExperimentID core.ExperimentID `json:"experiment_id"`
	UserID       core.UserID       `json:"user_id"`
	VariantID    core.VariantID    `json:"variant_id"`
	Event        string            `json:"event"`
	Value        float64           `json:"value"`
	At           core.Timestamp    `json:"at"`
}
