// Package app orchestrates the experimentation engine: variant
// assignment, metric tracking, result aggregation, feature flags and
// the autonomous experiment runner. Nothing here is fatal for callers:
// unknown ids, ineligible users and degenerate statistics all resolve
// to "no experiment applies".
package app

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
	sigstats "gosplit/domain/stats"
	"gosplit/internal"
	"gosplit/ports"
)

// Engine owns the experiment lifecycle and the assignment/track/results
// hot path. Construct once and share; all methods are safe for
// concurrent use.
type Engine struct {
	experiments ports.ExperimentStore
	assignments ports.AssignmentTable
	ledger      ports.MetricLedger
	audience    ports.AudienceResolver // optional
	archive     ports.ResultArchive    // optional
	log         *internal.Logger
	now         func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithAudienceResolver wires segment/attribute resolution for audience
// filters. Without one, only the user-id allow-list is evaluable.
func WithAudienceResolver(r ports.AudienceResolver) EngineOption {
	return func(e *Engine) { e.audience = r }
}

// WithArchive wires a write-only sink that receives the final result
// when an experiment is stopped.
func WithArchive(a ports.ResultArchive) EngineOption {
	return func(e *Engine) { e.archive = a }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given stores.
func NewEngine(experiments ports.ExperimentStore, assignments ports.AssignmentTable, ledger ports.MetricLedger, log *internal.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		experiments: experiments,
		assignments: assignments,
		ledger:      ledger,
		log:         log.Named("engine"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateExperimentRequest defines a new experiment. Variant ids are
// generated when absent; status is always forced to draft.
type CreateExperimentRequest struct {
	Name        string                       `json:"name"`
	Description string                       `json:"description"`
	Variants    []experiment.Variant         `json:"variants"`
	Traffic     experiment.TrafficAllocation `json:"traffic"`
	Metrics     []experiment.MetricConfig    `json:"metrics"`
	Audience    *experiment.AudienceFilter   `json:"audience,omitempty"`
}

// CreateExperiment validates and stores a new draft experiment.
func (e *Engine) CreateExperiment(ctx context.Context, req CreateExperimentRequest) (*experiment.Experiment, error) {
	exp := &experiment.Experiment{
		ID:          core.ExperimentID(core.NewID()),
		Name:        req.Name,
		Description: req.Description,
		Status:      experiment.StatusDraft,
		Variants:    req.Variants,
		Traffic:     req.Traffic,
		Metrics:     req.Metrics,
		Audience:    req.Audience,
		CreatedAt:   core.NewTimestamp(e.now()),
	}
	if exp.Traffic.Type == "" {
		exp.Traffic.Type = experiment.AllocationPercentage
	}
	for i := range exp.Variants {
		if exp.Variants[i].ID.IsEmpty() {
			exp.Variants[i].ID = core.VariantID(core.NewID())
		}
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	if err := e.experiments.Put(ctx, exp); err != nil {
		return nil, err
	}
	e.log.Info("created experiment %s (%s) with %d variants", exp.ID, exp.Name, len(exp.Variants))
	return exp.Clone(), nil
}

// GetExperiment returns the experiment, or nil when unknown.
func (e *Engine) GetExperiment(ctx context.Context, id core.ExperimentID) *experiment.Experiment {
	exp, err := e.experiments.Get(ctx, id)
	if err != nil {
		e.log.Error("get experiment %s: %v", id, err)
		return nil
	}
	return exp
}

// ListExperiments returns all experiments.
func (e *Engine) ListExperiments(ctx context.Context) []*experiment.Experiment {
	exps, err := e.experiments.List(ctx)
	if err != nil {
		e.log.Error("list experiments: %v", err)
		return nil
	}
	return exps
}

// transition applies a status change under the store lock. Returns
// false for an unknown id or an illegal transition; illegal attempts
// on terminal experiments are the one condition worth surfacing loudly.
func (e *Engine) transition(ctx context.Context, id core.ExperimentID, from []experiment.Status, to experiment.Status, mutate func(*experiment.Experiment)) bool {
	err := e.experiments.Update(ctx, id, func(exp *experiment.Experiment) error {
		for _, s := range from {
			if exp.Status == s {
				exp.Status = to
				if mutate != nil {
					mutate(exp)
				}
				return nil
			}
		}
		return &invalidTransitionError{from: exp.Status, to: to}
	})
	if err != nil {
		e.log.Warn("experiment %s: %s transition rejected: %v", id, to, err)
		return false
	}
	return true
}

type invalidTransitionError struct {
	from, to experiment.Status
}

func (e *invalidTransitionError) Error() string {
	return "cannot move " + string(e.from) + " experiment to " + string(e.to)
}

// StartExperiment moves a draft experiment to running and records the
// start timestamp. Returns false for unknown ids and repeated starts.
func (e *Engine) StartExperiment(ctx context.Context, id core.ExperimentID) bool {
	now := e.now()
	return e.transition(ctx, id, []experiment.Status{experiment.StatusDraft}, experiment.StatusRunning, func(exp *experiment.Experiment) {
		exp.StartedAt = core.NewTimestamp(now)
	})
}

// PauseExperiment moves a running experiment to paused. Assignments
// survive a pause; lookups and tracking fail closed until resume.
func (e *Engine) PauseExperiment(ctx context.Context, id core.ExperimentID) bool {
	return e.transition(ctx, id, []experiment.Status{experiment.StatusRunning}, experiment.StatusPaused, nil)
}

// ResumeExperiment moves a paused experiment back to running.
func (e *Engine) ResumeExperiment(ctx context.Context, id core.ExperimentID) bool {
	return e.transition(ctx, id, []experiment.Status{experiment.StatusPaused}, experiment.StatusRunning, nil)
}

// StopExperiment completes a running or paused experiment and records
// the end timestamp. The final result is pushed to the archive when one
// is wired. Returns false for unknown ids and already-terminal
// experiments.
func (e *Engine) StopExperiment(ctx context.Context, id core.ExperimentID) bool {
	now := e.now()
	ok := e.transition(ctx, id, []experiment.Status{experiment.StatusRunning, experiment.StatusPaused}, experiment.StatusCompleted, func(exp *experiment.Experiment) {
		exp.EndedAt = core.NewTimestamp(now)
	})
	if !ok {
		return false
	}
	if e.archive != nil {
		exp := e.GetExperiment(ctx, id)
		result := e.GetResults(ctx, id)
		if exp != nil && result != nil {
			if err := e.archive.ArchiveResult(ctx, exp, result); err != nil {
				e.log.Error("archive result for %s: %v", id, err)
			}
		}
	}
	return true
}

// GetVariant resolves the sticky variant for a user, bucketing them on
// first contact. Returns nil when the experiment is unknown or not
// running, the user is outside the audience, or traffic allocation
// excludes them. Only an actual inclusion records an assignment;
// excluded and filtered users stay eligible for future calls.
func (e *Engine) GetVariant(ctx context.Context, id core.ExperimentID, userID core.UserID) *experiment.Variant {
	if userID.IsEmpty() {
		return nil
	}
	exp := e.GetExperiment(ctx, id)
	if exp == nil || exp.Status != experiment.StatusRunning {
		return nil
	}
	if !e.matchesAudience(ctx, exp.Audience, userID) {
		return nil
	}
	assignment, err := e.assignments.GetOrCreate(ctx, id, userID, func() (*experiment.Assignment, error) {
		if !exp.Included(userID) {
			return nil, nil
		}
		variant := exp.SelectVariant(userID)
		if variant == nil {
			return nil, nil
		}
		return &experiment.Assignment{
			ExperimentID: id,
			UserID:       userID,
			VariantID:    variant.ID,
			AssignedAt:   core.NewTimestamp(e.now()),
		}, nil
	})
	if err != nil {
		e.log.Error("assign %s/%s: %v", id, userID, err)
		return nil
	}
	if assignment == nil {
		return nil
	}
	return exp.FindVariant(assignment.VariantID)
}

func (e *Engine) matchesAudience(ctx context.Context, filter *experiment.AudienceFilter, userID core.UserID) bool {
	if filter.IsEmpty() {
		return true
	}
	var profile *experiment.UserProfile
	if e.audience != nil {
		p, err := e.audience.Resolve(ctx, userID)
		if err != nil {
			e.log.Error("resolve audience for %s: %v", userID, err)
		} else {
			profile = p
		}
	}
	return filter.Matches(userID, profile)
}

// TrackMetric appends a metric event for a user. Fire and forget: the
// call is a no-op unless the experiment is running and the user already
// holds an assignment, which keeps filtered-out users from polluting
// results.
func (e *Engine) TrackMetric(ctx context.Context, id core.ExperimentID, userID core.UserID, metricName string, value float64) {
	exp := e.GetExperiment(ctx, id)
	if exp == nil || exp.Status != experiment.StatusRunning {
		return
	}
	assignment, err := e.assignments.Get(ctx, id, userID)
	if err != nil {
		e.log.Error("lookup assignment %s/%s: %v", id, userID, err)
		return
	}
	if assignment == nil {
		return
	}
	event := experiment.MetricEvent{
		ExperimentID: id,
		UserID:       userID,
		VariantID:    assignment.VariantID,
		Event:        metricName,
		Value:        value,
		At:           core.NewTimestamp(e.now()),
	}
	if err := e.ledger.Append(ctx, event); err != nil {
		e.log.Error("append metric %s/%s: %v", id, metricName, err)
	}
}

// GetResults recomputes the experiment result from the assignment table
// and the metric ledger. Returns nil for an unknown experiment.
func (e *Engine) GetResults(ctx context.Context, id core.ExperimentID) *experiment.Result {
	exp := e.GetExperiment(ctx, id)
	if exp == nil {
		return nil
	}
	assignments, err := e.assignments.ByExperiment(ctx, id)
	if err != nil {
		e.log.Error("load assignments for %s: %v", id, err)
		return nil
	}
	events, err := e.ledger.Events(ctx, id)
	if err != nil {
		e.log.Error("load events for %s: %v", id, err)
		return nil
	}

	result := &experiment.Result{
		ExperimentID: id,
		Status:       exp.Status,
		Duration:     exp.Elapsed(e.now()),
		ComputedAt:   core.NewTimestamp(e.now()),
	}

	participants := make(map[core.VariantID]int, len(exp.Variants))
	first := make(map[core.VariantID]core.Timestamp, len(exp.Variants))
	last := make(map[core.VariantID]core.Timestamp, len(exp.Variants))
	for _, a := range assignments {
		participants[a.VariantID]++
		if f, ok := first[a.VariantID]; !ok || a.AssignedAt.Before(f) {
			first[a.VariantID] = a.AssignedAt
		}
		if l, ok := last[a.VariantID]; !ok || a.AssignedAt.After(l) {
			last[a.VariantID] = a.AssignedAt
		}
	}

	// Bucket raw values by (variant, source event) once, then aggregate
	// per configured metric.
	values := make(map[core.VariantID]map[string][]float64)
	for _, ev := range events {
		byEvent, ok := values[ev.VariantID]
		if !ok {
			byEvent = make(map[string][]float64)
			values[ev.VariantID] = byEvent
		}
		byEvent[ev.Event] = append(byEvent[ev.Event], ev.Value)
	}

	result.Variants = make([]experiment.VariantResult, 0, len(exp.Variants))
	for _, v := range exp.Variants {
		vr := experiment.VariantResult{
			VariantID:     v.ID,
			Name:          v.Name,
			Participants:  participants[v.ID],
			FirstExposure: first[v.ID],
			LastExposure:  last[v.ID],
		}
		if len(exp.Metrics) > 0 {
			vr.Metrics = make(map[string]experiment.MetricAggregate, len(exp.Metrics))
			for _, m := range exp.Metrics {
				vr.Metrics[m.Name] = aggregate(m, values[v.ID][m.SourceEvent()], vr.Participants)
			}
		}
		result.SampleSize += vr.Participants
		result.Variants = append(result.Variants, vr)
	}

	e.score(exp, result)
	return result
}

// aggregate rolls raw values up per the metric's declared aggregation.
func aggregate(m experiment.MetricConfig, raw []float64, participants int) experiment.MetricAggregate {
	agg := experiment.MetricAggregate{
		Name:        m.Name,
		Type:        m.Type,
		Aggregation: m.Aggregation,
		Count:       len(raw),
	}
	if len(raw) > 0 {
		agg.Sum, _ = stats.Sum(raw)
		agg.Avg, _ = stats.Mean(raw)
		agg.Min, _ = stats.Min(raw)
		agg.Max, _ = stats.Max(raw)
	}
	switch m.Aggregation {
	case experiment.AggAvg:
		agg.Value = agg.Avg
	case experiment.AggCount:
		agg.Value = float64(agg.Count)
	case experiment.AggMin:
		agg.Value = agg.Min
	case experiment.AggMax:
		agg.Value = agg.Max
	default:
		agg.Value = agg.Sum
	}
	if m.Type == experiment.MetricConversion && participants > 0 {
		converted := 0
		for _, v := range raw {
			if v > 0 {
				converted++
			}
		}
		agg.ConversionRate = float64(converted) / float64(participants)
	}
	return agg
}

// score runs the two-proportion test over the primary conversion
// metric: first variant is the control, the largest remaining variant
// is the treatment. A significant negative result reports no winner.
func (e *Engine) score(exp *experiment.Experiment, result *experiment.Result) {
	metric := primaryConversionMetric(exp)
	if metric == "" || len(result.Variants) < 2 {
		return
	}
	control := result.Variants[0]
	treatment := result.Variants[1]
	for _, vr := range result.Variants[2:] {
		if vr.Participants > treatment.Participants {
			treatment = vr
		}
	}
	outcome := sigstats.TwoProportion(
		sigstats.Proportion{Rate: control.ConversionRate(metric), N: control.Participants},
		sigstats.Proportion{Rate: treatment.ConversionRate(metric), N: treatment.Participants},
	)
	result.Confidence = outcome.Confidence
	result.Significant = outcome.Significant
	if outcome.Significant && treatment.ConversionRate(metric) > control.ConversionRate(metric) {
		result.Winner = treatment.VariantID
	}
}

func primaryConversionMetric(exp *experiment.Experiment) string {
	for _, m := range exp.Metrics {
		if m.Type == experiment.MetricConversion {
			return m.Name
		}
	}
	return ""
}
