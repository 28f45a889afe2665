// Package store persists belief states and deferrals.
//
// Two backends are provided: [Memory] for tests and single-process use,
// and [Badger] for embedded durable storage. [RedisDeferrals] keeps
// deferrals in Redis for deployments that share them across processes.
package store

import (
	"context"
	"errors"

	"github.com/soroban-labs/mastery"
)

// ErrNotFound is returned when no record exists for the requested key.
var ErrNotFound = errors.New("store: not found")

// UpdateFunc transforms the stored belief state for one skill. ok is
// false when no state exists yet, in which case state is the zero
// value. Returning an error aborts the update without writing.
type UpdateFunc func(state mastery.BeliefState, ok bool) (mastery.BeliefState, error)

// StateStore persists per-player, per-skill belief states.
type StateStore interface {
	// Get returns the stored state, or ErrNotFound.
	Get(ctx context.Context, playerID, skillID string) (mastery.BeliefState, error)

	// Update applies fn to the stored state atomically and persists
	// the result. The returned state is the persisted value.
	Update(ctx context.Context, playerID, skillID string, fn UpdateFunc) (mastery.BeliefState, error)

	// Player returns all of a player's states keyed by skill ID.
	// An unknown player yields an empty map, not an error.
	Player(ctx context.Context, playerID string) (map[string]mastery.BeliefState, error)

	Close() error
}

// DeferralStore persists per-player, per-skill deferrals. Upsert
// replaces any existing deferral for the same pair; expiry is computed
// from the stored record, never by the store itself.
type DeferralStore interface {
	Upsert(ctx context.Context, d mastery.Deferral) error

	// Get returns the stored deferral, expired or not, or ErrNotFound.
	Get(ctx context.Context, playerID, skillID string) (mastery.Deferral, error)

	// Delete removes a deferral. Deleting a missing record is a no-op.
	Delete(ctx context.Context, playerID, skillID string) error

	// Player returns all of a player's deferrals, expired included.
	Player(ctx context.Context, playerID string) ([]mastery.Deferral, error)

	Close() error
}
