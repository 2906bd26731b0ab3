package flag

import (
	"fmt"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// Flag is a percentage-rollout boolean switch. It reuses the same
// bucketing primitive as experiments, so a user enabled at p% stays
// enabled at every higher percentage.
type Flag struct {
	Key               core.FlagKey               `json:"key"`
	Description       string                     `json:"description,omitempty"`
	Enabled           bool                       `json:"enabled"`
	RolloutPercentage float64                    `json:"rollout_percentage"`
	Audience          *experiment.AudienceFilter `json:"audience,omitempty"`

	// ExperimentID optionally links the flag to an experiment whose
	// variant configs carry a value for this key. Set at creation;
	// empty means the flag resolves to the caller's default.
	ExperimentID core.ExperimentID `json:"experiment_id,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// Validate checks structural invariants before the flag is admitted to
// the store.
func (f *Flag) Validate() error {
	if f.Key.IsEmpty() {
		return fmt.Errorf("flag key is required")
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return fmt.Errorf("rollout percentage must be in [0,100], got %v", f.RolloutPercentage)
	}
	return nil
}

// RolloutIncludes decides the percentage draw for a user. The draw key
// mixes the flag key and user id so different flags slice the user base
// independently. Without a user id there is nothing to hash, so the
// flag only resolves true at a full rollout.
func (f *Flag) RolloutIncludes(userID core.UserID) bool {
	if userID.IsEmpty() {
		return f.RolloutPercentage >= 100
	}
	return core.Fraction(f.Key.String()+":"+userID.String()) < f.RolloutPercentage/100.0
}

// Clone returns a deep copy safe to hand to callers.
func (f *Flag) Clone() *Flag {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Audience = f.Audience.Clone()
	return &cp
}
