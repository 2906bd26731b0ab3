package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Plan is a sample-size plan for a two-proportion experiment.
type Plan struct {
	Baseline        float64 `json:"baseline"`
	MinimumEffect   float64 `json:"minimum_effect"`
	Alpha           float64 `json:"alpha"`
	Power           float64 `json:"power"`
	PerVariant      int     `json:"per_variant"`
	TotalSampleSize int     `json:"total_sample_size"`
}

// RequiredSampleSize computes the per-variant sample size needed to
// detect an absolute lift of mde over a baseline conversion rate with
// the given two-sided alpha and power. Standard normal-approximation
// formula for a two-proportion z-test with equal group sizes.
func RequiredSampleSize(baseline, mde, alpha, power float64) (Plan, error) {
	if baseline <= 0 || baseline >= 1 {
		return Plan{}, fmt.Errorf("baseline rate must be in (0,1), got %v", baseline)
	}
	if mde <= 0 || baseline+mde >= 1 {
		return Plan{}, fmt.Errorf("minimum effect %v is not detectable from baseline %v", mde, baseline)
	}
	if alpha <= 0 || alpha >= 1 {
		return Plan{}, fmt.Errorf("alpha must be in (0,1), got %v", alpha)
	}
	if power <= 0 || power >= 1 {
		return Plan{}, fmt.Errorf("power must be in (0,1), got %v", power)
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	zAlpha := norm.Quantile(1 - alpha/2)
	zBeta := norm.Quantile(power)

	p1 := baseline
	p2 := baseline + mde
	pBar := (p1 + p2) / 2

	numerator := zAlpha*math.Sqrt(2*pBar*(1-pBar)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	perVariant := int(math.Ceil((numerator * numerator) / (mde * mde)))

	return Plan{
		Baseline:        baseline,
		MinimumEffect:   mde,
		Alpha:           alpha,
		Power:           power,
		PerVariant:      perVariant,
		TotalSampleSize: perVariant * 2,
	}, nil
}
