package mastery

import (
	"fmt"
	"time"
)

// DefaultDeferralDuration is how long a deferral suppresses progression
// suggestions when no explicit duration is given.
const DefaultDeferralDuration = 7 * 24 * time.Hour

// Deferral is a time-bounded veto on progression suggestions for one
// (player, skill) pair. It never touches the belief state or readiness
// computation; only the session planner consults it. At most one
// deferral exists per key; re-deferring replaces the row and resets
// the window rather than stacking.
type Deferral struct {
	PlayerID   string    `json:"player_id"`
	SkillID    string    `json:"skill_id"`
	DeferredAt time.Time `json:"deferred_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewDeferral creates a deferral starting at now. A zero duration
// selects DefaultDeferralDuration; a negative one is rejected.
func NewDeferral(playerID, skillID string, now time.Time, duration time.Duration) (Deferral, error) {
	if playerID == "" || skillID == "" {
		return Deferral{}, fmt.Errorf("%w: empty player or skill ID", ErrInvalidDeferral)
	}
	if duration < 0 {
		return Deferral{}, fmt.Errorf("%w: negative duration %s", ErrInvalidDeferral, duration)
	}
	if duration == 0 {
		duration = DefaultDeferralDuration
	}
	return Deferral{
		PlayerID:   playerID,
		SkillID:    skillID,
		DeferredAt: now,
		ExpiresAt:  now.Add(duration),
	}, nil
}

// ActiveAt reports whether the deferral is still in force at the given
// time. Expiry is computed, not swept: a row with ExpiresAt ≤ now is
// simply inactive, so stale rows are harmless.
func (d Deferral) ActiveAt(now time.Time) bool {
	return now.Before(d.ExpiresAt)
}
