package ports

import (
	"context"

	"gosplit/domain/core"
	"gosplit/domain/flag"
)

// FlagStore is the registry of feature flags, independent of the
// experiment store. Get returns nil without error for an unknown key.
type FlagStore interface {
	Put(ctx context.Context, f *flag.Flag) error
	Get(ctx context.Context, key core.FlagKey) (*flag.Flag, error)
	List(ctx context.Context) ([]*flag.Flag, error)

	// Update applies fn to the stored flag under the store's lock.
	// Returns a NOT_FOUND error for an unknown key.
	Update(ctx context.Context, key core.FlagKey, fn func(*flag.Flag) error) error
}
