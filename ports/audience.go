package ports

import (
	"context"

	"gosplit/domain/core"
	"gosplit/domain/experiment"
)

// AudienceResolver supplies segment and attribute data for a user so
// audience filters can evaluate predicates beyond the id allow-list.
// Resolve returns nil without error for an unknown user.
type AudienceResolver interface {
	Resolve(ctx context.Context, userID core.UserID) (*experiment.UserProfile, error)
}
