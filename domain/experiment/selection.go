package experiment

import (
	"gosplit/domain/core"
)

// Included decides traffic inclusion for a user. Percentage allocation
// hashes the bare user id, so a user's inclusion draw is independent of
// the experiment and of the variant draw. Other allocation types admit
// everyone.
func (e *Experiment) Included(userID core.UserID) bool {
	if e.Traffic.Type != AllocationPercentage {
		return true
	}
	return core.Fraction(userID.String()) < e.Traffic.Percentage/100.0
}

// SelectVariant performs the weighted draw over the experiment's
// variants in declared order. The draw key mixes the experiment and
// user ids so it is independent of the inclusion draw. The last
// variant absorbs any rounding residue. Returns nil only when weights
// are degenerate (all zero).
func (e *Experiment) SelectVariant(userID core.UserID) *Variant {
	total := 0.0
	for _, v := range e.Variants {
		total += v.Weight
	}
	if total <= 0 {
		return nil
	}
	draw := core.Fraction("variant:" + e.ID.String() + ":" + userID.String())
	cumulative := 0.0
	for i := range e.Variants {
		cumulative += e.Variants[i].Weight / total
		if draw < cumulative {
			return &e.Variants[i]
		}
	}
	return &e.Variants[len(e.Variants)-1]
}
