package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosplit/adapters/memory"
	"gosplit/domain/core"
	"gosplit/domain/experiment"
	"gosplit/internal"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *memory.ExperimentStore) {
	t.Helper()
	store := memory.NewExperimentStore()
	engine := NewEngine(
		store,
		memory.NewAssignmentTable(),
		memory.NewMetricLedger(),
		internal.NewLogger(internal.LogLevelError),
		opts...,
	)
	return engine, store
}

func conversionExperiment(weights ...float64) CreateExperimentRequest {
	req := CreateExperimentRequest{
		Name:    "checkout test",
		Traffic: experiment.TrafficAllocation{Type: experiment.AllocationPercentage, Percentage: 100},
		Metrics: []experiment.MetricConfig{
			{Name: "clicked", Type: experiment.MetricConversion, Aggregation: experiment.AggCount},
			{Name: "revenue", Type: experiment.MetricSum, Aggregation: experiment.AggSum},
		},
	}
	for i, w := range weights {
		req.Variants = append(req.Variants, experiment.Variant{
			Name:   fmt.Sprintf("variant-%c", 'a'+i),
			Weight: w,
		})
	}
	return req
}

func TestCreateExperiment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusDraft, exp.Status, "new experiments are always drafts")
	assert.False(t, exp.ID.IsEmpty())
	for _, v := range exp.Variants {
		assert.False(t, v.ID.IsEmpty(), "variant ids are generated")
	}

	_, err = engine.CreateExperiment(ctx, conversionExperiment(0, 0))
	assert.Error(t, err, "all-zero weights are rejected")
}

func TestLifecycleTransitions(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)

	assert.False(t, engine.StopExperiment(ctx, exp.ID), "cannot stop a draft")
	assert.True(t, engine.StartExperiment(ctx, exp.ID))
	assert.False(t, engine.StartExperiment(ctx, exp.ID), "double start is rejected")

	assert.True(t, engine.PauseExperiment(ctx, exp.ID))
	assert.False(t, engine.PauseExperiment(ctx, exp.ID), "double pause is rejected")
	assert.True(t, engine.ResumeExperiment(ctx, exp.ID))

	assert.True(t, engine.StopExperiment(ctx, exp.ID))
	assert.False(t, engine.StopExperiment(ctx, exp.ID), "double stop is rejected")
	assert.False(t, engine.ResumeExperiment(ctx, exp.ID), "completed is terminal")

	got := engine.GetExperiment(ctx, exp.ID)
	require.NotNil(t, got)
	assert.Equal(t, experiment.StatusCompleted, got.Status)
	assert.False(t, got.StartedAt.IsZero())
	assert.False(t, got.EndedAt.IsZero())

	assert.False(t, engine.StartExperiment(ctx, "missing"), "unknown id degrades to false")
}

func TestGetVariant_StickyAndIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	first := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, first)
	second := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID, "repeated calls return the same variant")

	// Dropping traffic to zero must not evict an existing assignment.
	require.NoError(t, store.Update(ctx, exp.ID, func(e *experiment.Experiment) error {
		e.Traffic.Percentage = 0
		return nil
	}))
	after := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, after, "assigned user keeps their variant after traffic reduction")
	assert.Equal(t, first.ID, after.ID)

	assert.Nil(t, engine.GetVariant(ctx, exp.ID, "fresh-user"), "new users respect the reduced allocation")
}

func TestGetVariant_FailClosed(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)

	assert.Nil(t, engine.GetVariant(ctx, "missing", "u1"), "unknown experiment")
	assert.Nil(t, engine.GetVariant(ctx, exp.ID, "u1"), "draft experiment")

	require.True(t, engine.StartExperiment(ctx, exp.ID))
	require.NotNil(t, engine.GetVariant(ctx, exp.ID, "u1"))

	require.True(t, engine.PauseExperiment(ctx, exp.ID))
	assert.Nil(t, engine.GetVariant(ctx, exp.ID, "u1"), "paused experiment fails closed")

	require.True(t, engine.ResumeExperiment(ctx, exp.ID))
	assert.NotNil(t, engine.GetVariant(ctx, exp.ID, "u1"), "assignment survives a pause")
}

func TestGetVariant_AudienceFilter(t *testing.T) {
	audience := memory.NewStaticAudience()
	audience.SetProfile("beta-user", &experiment.UserProfile{Segments: []string{"beta"}})

	engine, _ := newTestEngine(t, WithAudienceResolver(audience))
	ctx := context.Background()

	req := conversionExperiment(1, 1)
	req.Audience = &experiment.AudienceFilter{Segments: []string{"beta"}}
	exp, err := engine.CreateExperiment(ctx, req)
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	assert.NotNil(t, engine.GetVariant(ctx, exp.ID, "beta-user"))
	assert.Nil(t, engine.GetVariant(ctx, exp.ID, "outsider"), "non-matching user gets no treatment")

	// Filtered users have no assignment, so a later audience change can
	// still admit them.
	audience.SetProfile("outsider", &experiment.UserProfile{Segments: []string{"beta"}})
	assert.NotNil(t, engine.GetVariant(ctx, exp.ID, "outsider"))
}

func TestTrackMetric_RequiresAssignment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	// Never bucketed: the event must not appear in any aggregate.
	engine.TrackMetric(ctx, exp.ID, "ghost", "clicked", 1)

	variant := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, variant)
	engine.TrackMetric(ctx, exp.ID, "u1", "clicked", 1)

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	total := 0
	for _, vr := range result.Variants {
		total += vr.Metrics["clicked"].Count
	}
	assert.Equal(t, 1, total, "only assigned users contribute events")
}

func TestEndToEndScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	v1 := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, v1)
	v2 := engine.GetVariant(ctx, exp.ID, "u1")
	require.NotNil(t, v2)
	assert.Equal(t, v1.ID, v2.ID)

	engine.TrackMetric(ctx, exp.ID, "u1", "clicked", 1)

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.SampleSize)

	vr := result.VariantByID(v1.ID)
	require.NotNil(t, vr)
	assert.Equal(t, 1, vr.Participants)
	assert.Equal(t, 1, vr.Metrics["clicked"].Count)
	assert.Equal(t, 1.0, vr.Metrics["clicked"].Sum)
	assert.Equal(t, 1.0, vr.Metrics["clicked"].ConversionRate)
}

func TestGetResults_AggregationCorrectness(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	variantID := engine.GetVariant(ctx, exp.ID, "u1").ID
	require.NotNil(t, engine.GetVariant(ctx, exp.ID, "u2"))

	for user, value := range map[string]float64{"u1": 10, "u2": 30} {
		engine.TrackMetric(ctx, exp.ID, core.UserID(user), "revenue", value)
	}
	engine.TrackMetric(ctx, exp.ID, "u1", "revenue", 20)

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	vr := result.VariantByID(variantID)
	require.NotNil(t, vr)

	revenue := vr.Metrics["revenue"]
	assert.Equal(t, 3, revenue.Count)
	assert.Equal(t, 60.0, revenue.Sum)
	assert.Equal(t, 20.0, revenue.Avg)
	assert.Equal(t, 10.0, revenue.Min)
	assert.Equal(t, 30.0, revenue.Max)
	assert.Equal(t, 60.0, revenue.Value, "sum aggregation exposes the sum")
}

func TestGetResults_SignificanceAndWinner(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	control := exp.Variants[0]
	// Strongly biased conversions: the treatment should win outright.
	for i := 0; i < 2000; i++ {
		userID := core.UserID(fmt.Sprintf("user-%d", i))
		v := engine.GetVariant(ctx, exp.ID, userID)
		require.NotNil(t, v)
		convert := i%10 == 0 // 10% baseline
		if v.ID != control.ID {
			convert = i%10 < 4 // 40% treatment
		}
		if convert {
			engine.TrackMetric(ctx, exp.ID, userID, "clicked", 1)
		}
	}

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	assert.True(t, result.Significant)
	assert.Greater(t, result.Confidence, 0.95)
	assert.Equal(t, exp.Variants[1].ID, result.Winner)
}

func TestGetResults_NoWinnerForNegativeEffect(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	control := exp.Variants[0]
	// Inverted effect: control converts far better. Significant, but no
	// winner is reported.
	for i := 0; i < 2000; i++ {
		userID := core.UserID(fmt.Sprintf("user-%d", i))
		v := engine.GetVariant(ctx, exp.ID, userID)
		require.NotNil(t, v)
		convert := i%10 < 4
		if v.ID != control.ID {
			convert = i%10 == 0
		}
		if convert {
			engine.TrackMetric(ctx, exp.ID, userID, "clicked", 1)
		}
	}

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	assert.True(t, result.Significant)
	assert.True(t, result.Winner.IsEmpty(), "a significant negative result reports no winner")
}

func TestGetResults_Degenerate(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)

	result := engine.GetResults(ctx, exp.ID)
	require.NotNil(t, result)
	assert.Zero(t, result.SampleSize)
	assert.Zero(t, result.Confidence)
	assert.False(t, result.Significant)

	assert.Nil(t, engine.GetResults(ctx, "missing"))
}

func TestGetVariant_ConcurrentFirstContact(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))

	const workers = 16
	results := make([]core.VariantID, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if v := engine.GetVariant(ctx, exp.ID, "contended-user"); v != nil {
				results[w] = v.ID
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		require.Equal(t, results[0], results[w], "racing first-time lookups must agree")
	}
}

type captureArchive struct {
	mu      sync.Mutex
	results []*experiment.Result
}

func (a *captureArchive) ArchiveResult(_ context.Context, _ *experiment.Experiment, result *experiment.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	return nil
}

func TestStopExperiment_Archives(t *testing.T) {
	archive := &captureArchive{}
	engine, _ := newTestEngine(t, WithArchive(archive))
	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, conversionExperiment(1, 1))
	require.NoError(t, err)
	require.True(t, engine.StartExperiment(ctx, exp.ID))
	require.NotNil(t, engine.GetVariant(ctx, exp.ID, "u1"))

	require.True(t, engine.StopExperiment(ctx, exp.ID))
	require.Len(t, archive.results, 1)
	assert.Equal(t, exp.ID, archive.results[0].ExperimentID)
	assert.Equal(t, 1, archive.results[0].SampleSize)
}
