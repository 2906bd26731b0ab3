package app

import (
	"context"
	"time"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
	"gosplit/internal"
	"gosplit/internal/errors"
)

// RunConfig holds the thresholds a monitored experiment must satisfy
// before the runner declares it concluded.
type RunConfig struct {
	MinSampleSize       int           `json:"min_sample_size"`
	MinDuration         time.Duration `json:"min_duration"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	AutoStop            bool          `json:"auto_stop"`
	PollInterval        time.Duration `json:"poll_interval,omitempty"`
}

// Runner monitors experiments and stops them once they reach a
// trustworthy conclusion. It is advisory automation over the engine's
// manual start/stop calls and never bypasses them.
type Runner struct {
	engine   *Engine
	log      *internal.Logger
	interval time.Duration
}

// NewRunner creates a runner with the given default poll interval.
func NewRunner(engine *Engine, interval time.Duration, log *internal.Logger) *Runner {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{engine: engine, log: log.Named("runner"), interval: interval}
}

// concluded checks the stop rule: enough samples, enough elapsed time,
// and either a significant result or the configured confidence.
func (cfg RunConfig) concluded(result *experiment.Result) bool {
	if result == nil {
		return false
	}
	if result.SampleSize < cfg.MinSampleSize {
		return false
	}
	if result.Duration < cfg.MinDuration {
		return false
	}
	return result.Significant || result.Confidence >= cfg.ConfidenceThreshold
}

// RunExperiment starts the experiment (a draft is started; an already
// running one is adopted) and polls its results until the thresholds in
// cfg are met, stopping it when AutoStop is set. Blocks until
// conclusion or ctx cancellation; a cancelled run leaves the experiment
// in whatever status it currently has.
func (r *Runner) RunExperiment(ctx context.Context, id core.ExperimentID, cfg RunConfig) (*experiment.Result, error) {
	exp := r.engine.GetExperiment(ctx, id)
	if exp == nil {
		return nil, errors.Newf(errors.CodeNotFound, "experiment %s not found", id)
	}
	switch exp.Status {
	case experiment.StatusDraft:
		if !r.engine.StartExperiment(ctx, id) {
			return nil, errors.Newf(errors.CodeInvalidTransition, "experiment %s could not be started", id)
		}
	case experiment.StatusRunning:
		// adopt a manually started experiment
	default:
		return nil, errors.Newf(errors.CodeInvalidTransition, "experiment %s is %s, nothing to monitor", id, exp.Status)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = r.interval
	}
	r.log.Info("monitoring experiment %s (min n=%d, min duration=%s, confidence=%.2f, auto-stop=%v)",
		id, cfg.MinSampleSize, cfg.MinDuration, cfg.ConfidenceThreshold, cfg.AutoStop)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Warn("monitor for %s cancelled: %v", id, ctx.Err())
			return r.engine.GetResults(ctx, id), ctx.Err()
		case <-ticker.C:
			result := r.engine.GetResults(ctx, id)
			if result == nil {
				return nil, errors.Newf(errors.CodeNotFound, "experiment %s disappeared", id)
			}
			if result.Status != experiment.StatusRunning {
				// someone stopped or paused it out from under us
				r.log.Info("experiment %s is %s, monitor exiting", id, result.Status)
				return result, nil
			}
			if !cfg.concluded(result) {
				r.log.Debug("experiment %s not concluded: n=%d confidence=%.4f", id, result.SampleSize, result.Confidence)
				continue
			}
			if cfg.AutoStop {
				if r.engine.StopExperiment(ctx, id) {
					r.log.Info("experiment %s concluded and stopped (n=%d, confidence=%.4f)", id, result.SampleSize, result.Confidence)
					return r.engine.GetResults(ctx, id), nil
				}
			}
			r.log.Info("experiment %s concluded (n=%d, confidence=%.4f)", id, result.SampleSize, result.Confidence)
			return result, nil
		}
	}
}

// Watch runs RunExperiment in the background. The returned channel
// receives the final result (when one was reached) and is then closed;
// the stop function cancels monitoring without touching the
// experiment's status.
func (r *Runner) Watch(ctx context.Context, id core.ExperimentID, cfg RunConfig) (<-chan *experiment.Result, func()) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *experiment.Result, 1)
	go func() {
		defer close(out)
		defer cancel()
		result, err := r.RunExperiment(ctx, id, cfg)
		if err != nil && result == nil {
			return
		}
		out <- result
	}()
	return out, cancel
}
