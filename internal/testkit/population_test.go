package testkit

import (
	"context"
	"testing"

	"gosplit/adapters/memory"
	"gosplit/app"
	"gosplit/internal"
)

func newEngine(t *testing.T) *app.Engine {
	t.Helper()
	return app.NewEngine(
		memory.NewExperimentStore(),
		memory.NewAssignmentTable(),
		memory.NewMetricLedger(),
		internal.NewLogger(internal.LogLevelError),
	)
}

func TestUserIDs(t *testing.T) {
	ids := UserIDs("visitor", 3)
	if len(ids) != 3 {
		t.Fatalf("len = %d, want 3", len(ids))
	}
	if ids[0] != "visitor-0" || ids[2] != "visitor-2" {
		t.Errorf("ids = %v", ids)
	}
	again := UserIDs("visitor", 3)
	for i := range ids {
		if ids[i] != again[i] {
			t.Errorf("ids not stable at %d: %s vs %s", i, ids[i], again[i])
		}
	}
}

func TestDrive_Deterministic(t *testing.T) {
	ctx := context.Background()
	rates := ConversionRates{"control": 0.1, "treatment": 0.4}
	users := UserIDs("user", 500)

	run := func() (*app.Engine, int, int) {
		engine := newEngine(t)
		exp, err := engine.CreateExperiment(ctx, TwoVariantExperiment("pricing page", 1, 1))
		if err != nil {
			t.Fatalf("CreateExperiment: %v", err)
		}
		if !engine.StartExperiment(ctx, exp.ID) {
			t.Fatal("StartExperiment returned false")
		}
		included := Drive(ctx, engine, exp.ID, users, rates, 42)
		result := engine.GetResults(ctx, exp.ID)
		if result == nil {
			t.Fatal("GetResults returned nil")
		}
		converted := 0
		for _, vr := range result.Variants {
			converted += vr.Metrics["converted"].Count
		}
		return engine, included, converted
	}

	_, included1, converted1 := run()
	_, included2, converted2 := run()

	if included1 != len(users) {
		t.Errorf("included = %d, want %d at full traffic", included1, len(users))
	}
	if included1 != included2 || converted1 != converted2 {
		t.Errorf("runs diverged: included %d/%d, converted %d/%d",
			included1, included2, converted1, converted2)
	}
	if converted1 == 0 {
		t.Error("no conversions recorded")
	}
}

func TestDrive_RespectsRates(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	exp, err := engine.CreateExperiment(ctx, TwoVariantExperiment("onboarding", 1, 1))
	if err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}
	engine.StartExperiment(ctx, exp.ID)

	Drive(ctx, engine, exp.ID, UserIDs("user", 2000), ConversionRates{"control": 0, "treatment": 1}, 7)

	result := engine.GetResults(ctx, exp.ID)
	for _, vr := range result.Variants {
		rate := vr.Metrics["converted"].ConversionRate
		switch vr.Name {
		case "control":
			if rate != 0 {
				t.Errorf("control rate = %f, want 0", rate)
			}
		case "treatment":
			if rate != 1 {
				t.Errorf("treatment rate = %f, want 1", rate)
			}
		}
	}
}
