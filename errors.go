package mastery

import "errors"

// Sentinel errors for the mastery package.
// Use errors.Is to check: errors.Is(err, mastery.ErrInvalidAttempt)
var (
	ErrInvalidAttempt    = errors.New("mastery: invalid attempt")
	ErrSkillMismatch     = errors.New("mastery: skill ID mismatch")
	ErrUnknownSkill      = errors.New("mastery: unknown skill")
	ErrDuplicateSkill    = errors.New("mastery: duplicate skill")
	ErrInvalidParams     = errors.New("mastery: parameters out of bounds")
	ErrInvalidThresholds = errors.New("mastery: thresholds out of bounds")
	ErrInvalidDeferral   = errors.New("mastery: invalid deferral")
)
