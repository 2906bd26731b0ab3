package memory

import (
	"context"
	"sync"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// StaticAudience is a ports.AudienceResolver over a fixed profile map.
// Useful for embedding callers that already know their users' segments
// and for tests; production deployments wire their own resolver.
type StaticAudience struct {
	mu       sync.RWMutex
	profiles map[core.UserID]*experiment.UserProfile
}

// NewStaticAudience creates an empty resolver.
func NewStaticAudience() *StaticAudience {
	return &StaticAudience{profiles: make(map[core.UserID]*experiment.UserProfile)}
}

// SetProfile records the profile for a user, replacing any previous one.
func (a *StaticAudience) SetProfile(userID core.UserID, profile *experiment.UserProfile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profiles[userID] = profile
}

// Resolve returns the stored profile, or nil for an unknown user.
func (a *StaticAudience) Resolve(ctx context.Context, userID core.UserID) (*experiment.UserProfile, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profiles[userID], nil
}
