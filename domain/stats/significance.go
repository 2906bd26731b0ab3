package stats

import (
	"math"
)

// Proportion is one group in a two-proportion comparison: a conversion
// rate over a sample of n participants.
type Proportion struct {
	Rate float64
	N    int
}

// Outcome is the result of a two-proportion z-test. Confidence is the
// two-sided confidence level in [0,1]; Significant is true above the
// 95% threshold.
type Outcome struct {
	ZScore      float64 `json:"z_score"`
	Confidence  float64 `json:"confidence"`
	Significant bool    `json:"significant"`
}

// significanceLevel is the two-sided confidence above which a result is
// declared significant.
const significanceLevel = 0.95

// TwoProportion runs a pooled two-proportion z-test of treatment
// against control. An empty group is a degenerate case and reports
// confidence 0 rather than dividing by zero; a zero standard error is
// treated as 1 for the same reason.
func TwoProportion(control, treatment Proportion) Outcome {
	if control.N == 0 || treatment.N == 0 {
		return Outcome{}
	}
	n1 := float64(control.N)
	n2 := float64(treatment.N)
	pooled := (control.Rate*n1 + treatment.Rate*n2) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		se = 1
	}
	z := (treatment.Rate - control.Rate) / se
	confidence := 2*NormalCDF(math.Abs(z)) - 1
	return Outcome{
		ZScore:      z,
		Confidence:  confidence,
		Significant: confidence > significanceLevel,
	}
}

// Abramowitz–Stegun 7.1.26 rational approximation coefficients for erf.
const (
	asA1 = 0.254829592
	asA2 = -0.284496736
	asA3 = 1.421413741
	asA4 = -1.453152027
	asA5 = 1.061405429
	asP  = 0.3275911
)

// erf approximates the error function with a maximum absolute error of
// about 1.5e-7, which is far below anything a significance threshold
// can distinguish.
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	t := 1.0 / (1.0 + asP*x)
	y := 1.0 - (((((asA5*t+asA4)*t)+asA3)*t+asA2)*t+asA1)*t*math.Exp(-x*x)
	return sign * y
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}
