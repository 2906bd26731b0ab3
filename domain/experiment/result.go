package experiment

import (
	"time"

	"gosplit/domain/core"
)

// MetricAggregate is the per-variant rollup of one configured metric.
type MetricAggregate struct {
	Name           string      `json:"name"`
	Type           MetricType  `json:"type"`
	Aggregation    Aggregation `json:"aggregation"`
	Count          int         `json:"count"`
	Sum            float64     `json:"sum"`
	Avg            float64     `json:"avg"`
	Min            float64     `json:"min"`
	Max            float64     `json:"max"`
	Value          float64     `json:"value"`
	ConversionRate float64     `json:"conversion_rate,omitempty"`
}

// VariantResult is the per-variant slice of an experiment result.
type VariantResult struct {
	VariantID     core.VariantID             `json:"variant_id"`
	Name          string                     `json:"name"`
	Participants  int                        `json:"participants"`
	Metrics       map[string]MetricAggregate `json:"metrics,omitempty"`
	FirstExposure core.Timestamp             `json:"first_exposure,omitzero"`
	LastExposure  core.Timestamp             `json:"last_exposure,omitzero"`
}

// ConversionRate returns the conversion rate of the named metric, or 0.
func (v VariantResult) ConversionRate(metric string) float64 {
	return v.Metrics[metric].ConversionRate
}

// Result is derived on demand from the experiment definition, the
// assignment table and the metric ledger; it is never stored, so it can
// never drift from its inputs.
type Result struct {
	ExperimentID core.ExperimentID `json:"experiment_id"`
	Status       Status            `json:"status"`
	Variants     []VariantResult   `json:"variants"`
	SampleSize   int               `json:"sample_size"`
	Duration     time.Duration     `json:"duration"`
	Winner       core.VariantID    `json:"winner,omitempty"`
	Confidence   float64           `json:"confidence"`
	Significant  bool              `json:"significant"`
	ComputedAt   core.Timestamp    `json:"computed_at"`
}

// VariantByID returns the variant slice with the given id, or nil.
func (r *Result) VariantByID(id core.VariantID) *VariantResult {
	for i := range r.Variants {
		if r.Variants[i].VariantID == id {
			return &r.Variants[i]
		}
	}
	return nil
}
