package experiment

import (
	"fmt"
	"time"

	"gosplit/domain/core"
)

// Status represents the lifecycle state of an experiment
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// AllocationType selects how traffic inclusion is decided
type AllocationType string

const (
	AllocationPercentage AllocationType = "percentage"
	AllocationHash       AllocationType = "hash"
	AllocationUserID     AllocationType = "user_id"
)

// TrafficAllocation governs whether a user participates in an experiment
// at all, independent of which variant they land in.
type TrafficAllocation struct {
	Type       AllocationType `json:"type"`
	Percentage float64        `json:"percentage"`
}

// MetricType declares the semantic type of a tracked metric
type MetricType string

const (
	MetricConversion MetricType = "conversion"
	MetricCount      MetricType = "count"
	MetricSum        MetricType = "sum"
	MetricAverage    MetricType = "average"
	MetricDuration   MetricType = "duration"
)

// Aggregation declares how raw metric values roll up per variant
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

// MetricConfig declares a metric an experiment listens for. The ledger
// stores raw values regardless of the declared aggregation; aggregation
// is applied at read time.
type MetricConfig struct {
	Name        string      `json:"name"`
	Type        MetricType  `json:"type"`
	EventName   string      `json:"event_name,omitempty"`
	Aggregation Aggregation `json:"aggregation"`
}

// SourceEvent returns the event name this metric listens for, falling
// back to the metric name itself.
func (m MetricConfig) SourceEvent() string {
	if m.EventName != "" {
		return m.EventName
	}
	return m.Name
}

// Variant is one arm of an experiment. Config carries arbitrary key/value
// pairs delivered to the caller when this variant is chosen.
type Variant struct {
	ID          core.VariantID `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Weight      float64        `json:"weight"`
	Config      map[string]any `json:"config,omitempty"`
}

// Experiment is the unit of A/B testing: an ordered list of variants, a
// traffic allocation and the metrics it listens for.
type Experiment struct {
	ID          core.ExperimentID `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Status      Status            `json:"status"`
	Variants    []Variant         `json:"variants"`
	Traffic     TrafficAllocation `json:"traffic"`
	Metrics     []MetricConfig    `json:"metrics,omitempty"`
	Audience    *AudienceFilter   `json:"audience,omitempty"`
	CreatedAt   core.Timestamp    `json:"created_at"`
	StartedAt   core.Timestamp    `json:"started_at,omitzero"`
	EndedAt     core.Timestamp    `json:"ended_at,omitzero"`
}

// Validate checks structural invariants on a definition before it is
// admitted to the store.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if len(e.Variants) == 0 {
		return fmt.Errorf("experiment needs at least one variant")
	}
	total := 0.0
	for i, v := range e.Variants {
		if v.Weight < 0 {
			return fmt.Errorf("variant %q: weight must be non-negative", v.Name)
		}
		if v.Name == "" {
			return fmt.Errorf("variant %d: name is required", i)
		}
		total += v.Weight
	}
	if total <= 0 {
		return fmt.Errorf("variant weights must sum to a positive value")
	}
	if e.Traffic.Percentage < 0 || e.Traffic.Percentage > 100 {
		return fmt.Errorf("traffic percentage must be in [0,100], got %v", e.Traffic.Percentage)
	}
	seen := make(map[string]bool, len(e.Metrics))
	for _, m := range e.Metrics {
		if m.Name == "" {
			return fmt.Errorf("metric name is required")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate metric name %q", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// FindVariant returns the variant with the given id, or nil.
func (e *Experiment) FindVariant(id core.VariantID) *Variant {
	for i := range e.Variants {
		if e.Variants[i].ID == id {
			return &e.Variants[i]
		}
	}
	return nil
}

// MetricByName returns the metric config with the given name, or nil.
func (e *Experiment) MetricByName(name string) *MetricConfig {
	for i := range e.Metrics {
		if e.Metrics[i].Name == name {
			return &e.Metrics[i]
		}
	}
	return nil
}

// Elapsed returns how long the experiment has been (or was) running,
// measured from the start timestamp to the end timestamp if stopped,
// otherwise to now.
func (e *Experiment) Elapsed(now time.Time) time.Duration {
	if e.StartedAt.IsZero() {
		return 0
	}
	if !e.EndedAt.IsZero() {
		return e.EndedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt.Time())
}

// Clone returns a deep copy safe to hand to callers while the stored
// record keeps being mutated under the store's lock.
func (e *Experiment) Clone() *Experiment {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Variants = make([]Variant, len(e.Variants))
	for i, v := range e.Variants {
		cp.Variants[i] = v
		if v.Config != nil {
			cfg := make(map[string]any, len(v.Config))
			for k, val := range v.Config {
				cfg[k] = val
			}
			cp.Variants[i].Config = cfg
		}
	}
	cp.Metrics = append([]MetricConfig(nil), e.Metrics...)
	cp.Audience = e.Audience.Clone()
	return &cp
}
