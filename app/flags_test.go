package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosplit/adapters/memory"
	"gosplit/domain/core"
	"gosplit/domain/experiment"
	"gosplit/domain/flag"
	"gosplit/internal"
)

func newTestFlagService(t *testing.T) (*FlagService, *Engine) {
	t.Helper()
	experiments := memory.NewExperimentStore()
	audience := memory.NewStaticAudience()
	audience.SetProfile("beta-user", &experiment.UserProfile{Segments: []string{"beta"}})

	log := internal.NewLogger(internal.LogLevelError)
	engine := NewEngine(experiments, memory.NewAssignmentTable(), memory.NewMetricLedger(), log,
		WithAudienceResolver(audience))
	return NewFlagService(memory.NewFlagStore(), experiments, audience, log), engine
}

func TestFlag_CreateDisabled(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, CreateFlagRequest{Key: "new-checkout", RolloutPercentage: 50})
	require.NoError(t, err)
	assert.False(t, f.Enabled, "flags are created disabled")
	assert.False(t, svc.IsEnabled(ctx, "new-checkout", "u1"))

	_, err = svc.Create(ctx, CreateFlagRequest{Key: "bad", RolloutPercentage: 150})
	assert.Error(t, err)
	_, err = svc.Create(ctx, CreateFlagRequest{Key: ""})
	assert.Error(t, err)
}

func TestFlag_EnableDisable(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateFlagRequest{Key: "new-checkout", RolloutPercentage: 100})
	require.NoError(t, err)

	assert.True(t, svc.Enable(ctx, "new-checkout"))
	assert.True(t, svc.IsEnabled(ctx, "new-checkout", "u1"))
	assert.True(t, svc.Disable(ctx, "new-checkout"))
	assert.False(t, svc.IsEnabled(ctx, "new-checkout", "u1"))

	assert.False(t, svc.Enable(ctx, "missing"), "unknown key degrades to false")
	assert.False(t, svc.IsEnabled(ctx, "missing", "u1"))
}

func TestFlag_RolloutBoundaries(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()

	create := func(key string, pct float64) {
		_, err := svc.Create(ctx, CreateFlagRequest{Key: key, RolloutPercentage: pct})
		require.NoError(t, err)
		require.True(t, svc.Enable(ctx, core.FlagKey(key)))
	}

	create("all-off", 0)
	create("all-on", 100)
	for i := 0; i < 500; i++ {
		userID := core.UserID(fmt.Sprintf("user-%d", i))
		assert.False(t, svc.IsEnabled(ctx, "all-off", userID))
		assert.True(t, svc.IsEnabled(ctx, "all-on", userID))
	}
}

func TestFlag_RolloutMonotonic(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()

	// A user enabled at p% stays enabled at any higher percentage: the
	// bucketing fraction for the (key, user) pair is fixed.
	_, err := svc.Create(ctx, CreateFlagRequest{Key: "ramp", RolloutPercentage: 0})
	require.NoError(t, err)
	require.True(t, svc.Enable(ctx, "ramp"))

	users := make([]core.UserID, 300)
	for i := range users {
		users[i] = core.UserID(fmt.Sprintf("user-%d", i))
	}

	enabledAt := make(map[core.UserID]bool)
	for pct := 0.0; pct <= 100; pct += 10 {
		require.NoError(t, svc.flags.Update(ctx, "ramp", func(f *flag.Flag) error {
			f.RolloutPercentage = pct
			return nil
		}))
		for _, u := range users {
			now := svc.IsEnabled(ctx, "ramp", u)
			if enabledAt[u] && !now {
				t.Fatalf("user %s lost the flag when rollout grew to %.0f%%", u, pct)
			}
			enabledAt[u] = now
		}
	}
	count := 0
	for _, on := range enabledAt {
		if on {
			count++
		}
	}
	assert.Equal(t, len(users), count, "100%% rollout covers everyone")
}

func TestFlag_NoUserID(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateFlagRequest{Key: "partial", RolloutPercentage: 60})
	require.NoError(t, err)
	require.True(t, svc.Enable(ctx, "partial"))
	assert.False(t, svc.IsEnabled(ctx, "partial", ""), "no identity to hash below 100%%")

	_, err = svc.Create(ctx, CreateFlagRequest{Key: "full", RolloutPercentage: 100})
	require.NoError(t, err)
	require.True(t, svc.Enable(ctx, "full"))
	assert.True(t, svc.IsEnabled(ctx, "full", ""))
}

func TestFlag_Audience(t *testing.T) {
	svc, _ := newTestFlagService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateFlagRequest{
		Key:               "beta-only",
		RolloutPercentage: 100,
		Audience:          &experiment.AudienceFilter{Segments: []string{"beta"}},
	})
	require.NoError(t, err)
	require.True(t, svc.Enable(ctx, "beta-only"))

	assert.True(t, svc.IsEnabled(ctx, "beta-only", "beta-user"))
	assert.False(t, svc.IsEnabled(ctx, "beta-only", "regular-user"))
}

func TestFlag_ValueThroughLinkedExperiment(t *testing.T) {
	svc, engine := newTestFlagService(t)
	ctx := context.Background()

	exp, err := engine.CreateExperiment(ctx, CreateExperimentRequest{
		Name: "button color",
		Variants: []experiment.Variant{
			{Name: "control", Weight: 1, Config: map[string]any{"button-color": "blue"}},
			{Name: "treatment", Weight: 1, Config: map[string]any{"other-key": "x"}},
		},
		Traffic: experiment.TrafficAllocation{Type: experiment.AllocationPercentage, Percentage: 100},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateFlagRequest{
		Key:               "button-color",
		RolloutPercentage: 100,
		ExperimentID:      exp.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "gray", svc.Value(ctx, "button-color", "gray", "u1"), "disabled flag returns the default")

	require.True(t, svc.Enable(ctx, "button-color"))
	assert.Equal(t, "blue", svc.Value(ctx, "button-color", "gray", "u1"),
		"first variant config carrying the key supplies the value")

	// Unlinked flags resolve to the default even when enabled.
	_, err = svc.Create(ctx, CreateFlagRequest{Key: "plain", RolloutPercentage: 100})
	require.NoError(t, err)
	require.True(t, svc.Enable(ctx, "plain"))
	assert.Equal(t, 7, svc.Value(ctx, "plain", 7, "u1"))
}
