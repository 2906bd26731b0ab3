// Package testkit generates deterministic synthetic populations and
// metric traffic for exercising the engine in tests and demos.
package testkit

import (
	"context"
	"fmt"
	"math/rand"

	"gosplit/app"
	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// UserIDs returns n synthetic user ids with a common prefix. The ids
// are stable, so bucketing decisions over them are reproducible.
func UserIDs(prefix string, n int) []core.UserID {
	ids := make([]core.UserID, n)
	for i := range ids {
		ids[i] = core.UserID(fmt.Sprintf("%s-%d", prefix, i))
	}
	return ids
}

// TwoVariantExperiment is a ready-made create request with a control
// and a treatment variant, full traffic, and a single conversion
// metric named "converted".
func TwoVariantExperiment(name string, controlWeight, treatmentWeight float64) app.CreateExperimentRequest {
	return app.CreateExperimentRequest{
		Name: name,
		Variants: []experiment.Variant{
			{Name: "control", Weight: controlWeight},
			{Name: "treatment", Weight: treatmentWeight},
		},
		Traffic: experiment.TrafficAllocation{
			Type:       experiment.AllocationPercentage,
			Percentage: 100,
		},
		Metrics: []experiment.MetricConfig{
			{Name: "converted", Type: experiment.MetricConversion, Aggregation: experiment.AggCount},
		},
	}
}

// ConversionRates maps variant names to the probability a participant
// converts.
type ConversionRates map[string]float64

// Drive pushes a population through a running experiment: every user is
// bucketed via GetVariant, and converts with their variant's configured
// probability using a seeded generator. Returns how many users were
// actually included by traffic allocation.
func Drive(ctx context.Context, engine *app.Engine, id core.ExperimentID, users []core.UserID, rates ConversionRates, seed int64) int {
	rng := rand.New(rand.NewSource(seed))
	included := 0
	for _, userID := range users {
		variant := engine.GetVariant(ctx, id, userID)
		if variant == nil {
			continue
		}
		included++
		if rng.Float64() < rates[variant.Name] {
			engine.TrackMetric(ctx, id, userID, "converted", 1)
		}
	}
	return included
}
