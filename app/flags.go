package app

import (
	"context"
	"time"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
	"gosplit/domain/flag"
	"gosplit/internal"
	"gosplit/ports"
)

// FlagService owns feature flag creation and evaluation. Flags reuse
// the engine's bucketing primitive for percentage rollout and can
// resolve a typed value through an explicitly linked experiment's
// variant config.
type FlagService struct {
	flags       ports.FlagStore
	experiments ports.ExperimentStore
	audience    ports.AudienceResolver // optional
	log         *internal.Logger
	now         func() time.Time
}

// NewFlagService creates a flag service. audience may be nil.
func NewFlagService(flags ports.FlagStore, experiments ports.ExperimentStore, audience ports.AudienceResolver, log *internal.Logger) *FlagService {
	return &FlagService{
		flags:       flags,
		experiments: experiments,
		audience:    audience,
		log:         log.Named("flags"),
		now:         time.Now,
	}
}

// CreateFlagRequest defines a new flag. Flags are created disabled.
type CreateFlagRequest struct {
	Key               string                     `json:"key"`
	Description       string                     `json:"description"`
	RolloutPercentage float64                    `json:"rollout_percentage"`
	Audience          *experiment.AudienceFilter `json:"audience,omitempty"`
	ExperimentID      core.ExperimentID          `json:"experiment_id,omitempty"`
}

// Create validates and stores a new disabled flag.
func (s *FlagService) Create(ctx context.Context, req CreateFlagRequest) (*flag.Flag, error) {
	f := &flag.Flag{
		Key:               core.FlagKey(req.Key),
		Description:       req.Description,
		Enabled:           false,
		RolloutPercentage: req.RolloutPercentage,
		Audience:          req.Audience,
		ExperimentID:      req.ExperimentID,
		CreatedAt:         core.NewTimestamp(s.now()),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.flags.Put(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info("created flag %s at %.0f%% rollout", f.Key, f.RolloutPercentage)
	return f.Clone(), nil
}

// Get returns the flag, or nil when unknown.
func (s *FlagService) Get(ctx context.Context, key core.FlagKey) *flag.Flag {
	f, err := s.flags.Get(ctx, key)
	if err != nil {
		s.log.Error("get flag %s: %v", key, err)
		return nil
	}
	return f
}

// List returns all flags.
func (s *FlagService) List(ctx context.Context) []*flag.Flag {
	flags, err := s.flags.List(ctx)
	if err != nil {
		s.log.Error("list flags: %v", err)
		return nil
	}
	return flags
}

// Enable switches a flag on. Returns false for unknown keys.
func (s *FlagService) Enable(ctx context.Context, key core.FlagKey) bool {
	return s.setEnabled(ctx, key, true)
}

// Disable switches a flag off. Returns false for unknown keys.
func (s *FlagService) Disable(ctx context.Context, key core.FlagKey) bool {
	return s.setEnabled(ctx, key, false)
}

func (s *FlagService) setEnabled(ctx context.Context, key core.FlagKey, enabled bool) bool {
	err := s.flags.Update(ctx, key, func(f *flag.Flag) error {
		f.Enabled = enabled
		return nil
	})
	if err != nil {
		s.log.Warn("toggle flag %s: %v", key, err)
		return false
	}
	return true
}

// IsEnabled evaluates the flag for a user. False when the flag is
// unknown or disabled, when a set audience does not match, or when the
// rollout draw excludes the user. An empty user id can only resolve
// true at 100% rollout.
func (s *FlagService) IsEnabled(ctx context.Context, key core.FlagKey, userID core.UserID) bool {
	f := s.Get(ctx, key)
	if f == nil || !f.Enabled {
		return false
	}
	if !f.Audience.IsEmpty() && !userID.IsEmpty() {
		if !f.Audience.Matches(userID, s.resolveProfile(ctx, userID)) {
			return false
		}
	}
	return f.RolloutIncludes(userID)
}

// Value resolves the typed value behind a flag. Returns defaultValue
// unless the flag is enabled for the user; when the flag is linked to
// an experiment, the first variant config carrying the flag key (in
// declared variant order) supplies the value instead.
func (s *FlagService) Value(ctx context.Context, key core.FlagKey, defaultValue any, userID core.UserID) any {
	if !s.IsEnabled(ctx, key, userID) {
		return defaultValue
	}
	f := s.Get(ctx, key)
	if f == nil || f.ExperimentID.IsEmpty() {
		return defaultValue
	}
	exp, err := s.experiments.Get(ctx, f.ExperimentID)
	if err != nil || exp == nil {
		return defaultValue
	}
	for _, v := range exp.Variants {
		if val, ok := v.Config[key.String()]; ok {
			return val
		}
	}
	return defaultValue
}

func (s *FlagService) resolveProfile(ctx context.Context, userID core.UserID) *experiment.UserProfile {
	if s.audience == nil {
		return nil
	}
	profile, err := s.audience.Resolve(ctx, userID)
	if err != nil {
		s.log.Error("resolve audience for %s: %v", userID, err)
		return nil
	}
	return profile
}
