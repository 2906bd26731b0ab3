package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestTwoProportion_KnownValues(t *testing.T) {
	// 10% vs 15% over 1000 users each: z ≈ 3.3806, clearly significant.
	out := TwoProportion(Proportion{Rate: 0.10, N: 1000}, Proportion{Rate: 0.15, N: 1000})
	if math.Abs(out.ZScore-3.3806) > 0.001 {
		t.Errorf("z = %.4f, want ≈ 3.3806", out.ZScore)
	}
	if math.Abs(out.Confidence-0.99928) > 0.0005 {
		t.Errorf("confidence = %.5f, want ≈ 0.99928", out.Confidence)
	}
	if !out.Significant {
		t.Error("expected significance")
	}
}

func TestTwoProportion_Borderline(t *testing.T) {
	// 10% vs 12% over 1000 users each sits below the 95% bar.
	out := TwoProportion(Proportion{Rate: 0.10, N: 1000}, Proportion{Rate: 0.12, N: 1000})
	if out.Significant {
		t.Errorf("confidence %.4f should not be significant", out.Confidence)
	}
	if out.Confidence < 0.80 || out.Confidence > 0.90 {
		t.Errorf("confidence = %.4f, want ≈ 0.847", out.Confidence)
	}
}

func TestTwoProportion_Symmetry(t *testing.T) {
	a := Proportion{Rate: 0.10, N: 1000}
	b := Proportion{Rate: 0.15, N: 800}
	fwd := TwoProportion(a, b)
	rev := TwoProportion(b, a)
	if math.Abs(fwd.Confidence-rev.Confidence) > 1e-12 {
		t.Errorf("confidence not symmetric: %.12f vs %.12f", fwd.Confidence, rev.Confidence)
	}
	if math.Abs(fwd.ZScore+rev.ZScore) > 1e-12 {
		t.Errorf("z should negate under swap: %.6f vs %.6f", fwd.ZScore, rev.ZScore)
	}
}

func TestTwoProportion_Degenerate(t *testing.T) {
	t.Run("empty control", func(t *testing.T) {
		out := TwoProportion(Proportion{Rate: 0, N: 0}, Proportion{Rate: 0.5, N: 100})
		if out.Significant || out.Confidence != 0 {
			t.Errorf("empty group should report zero confidence, got %+v", out)
		}
	})
	t.Run("empty treatment", func(t *testing.T) {
		out := TwoProportion(Proportion{Rate: 0.5, N: 100}, Proportion{Rate: 0, N: 0})
		if out.Significant || out.Confidence != 0 {
			t.Errorf("empty group should report zero confidence, got %+v", out)
		}
	})
	t.Run("zero standard error", func(t *testing.T) {
		// Both rates zero: pooled variance is zero, se is clamped to 1.
		out := TwoProportion(Proportion{Rate: 0, N: 100}, Proportion{Rate: 0, N: 100})
		if out.ZScore != 0 {
			t.Errorf("z = %v, want 0", out.ZScore)
		}
		if out.Significant {
			t.Error("identical empty rates should not be significant")
		}
		if out.Confidence > 1e-6 {
			t.Errorf("confidence = %v, want ≈ 0", out.Confidence)
		}
	})
}

func TestNormalCDF_AgainstGonum(t *testing.T) {
	// The rational approximation should track the exact CDF to within
	// its documented 1.5e-7 error bound.
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	for x := -5.0; x <= 5.0; x += 0.01 {
		got := NormalCDF(x)
		want := norm.CDF(x)
		if math.Abs(got-want) > 1.5e-7 {
			t.Fatalf("NormalCDF(%v) = %v, want %v (diff %v)", x, got, want, got-want)
		}
	}
}
