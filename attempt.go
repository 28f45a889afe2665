package mastery

import (
	"fmt"
	"time"
)

// Attempt records a single answer to a practice problem.
// It is the immutable input event consumed by Updater.ApplyAttempt;
// this package never persists attempts itself.
type Attempt struct {
	SkillID    string    `json:"skill_id"`
	SessionID  string    `json:"session_id"`
	Correct    bool      `json:"correct"`
	ResponseMs *int      `json:"response_ms,omitempty"` // milliseconds, optional
	TermCount  int       `json:"term_count"`            // operands in the problem; 0 → 1
	UsedHelp   bool      `json:"used_help"`
	Retry      bool      `json:"retry"` // retry of the same problem, not a fresh opportunity
	At         time.Time `json:"at"`
}

// Validate reports whether the attempt is well-formed.
// A malformed attempt is rejected locally and never retried.
func (a Attempt) Validate() error {
	if a.SkillID == "" {
		return fmt.Errorf("%w: empty skill ID", ErrInvalidAttempt)
	}
	if a.ResponseMs != nil && *a.ResponseMs < 0 {
		return fmt.Errorf("%w: negative response time %dms", ErrInvalidAttempt, *a.ResponseMs)
	}
	if a.TermCount < 0 {
		return fmt.Errorf("%w: negative term count %d", ErrInvalidAttempt, a.TermCount)
	}
	return nil
}

// outcome converts the attempt to its rolling-window footprint.
func (a Attempt) outcome() Outcome {
	terms := a.TermCount
	if terms < 1 {
		terms = 1
	}
	var ms *int
	if a.ResponseMs != nil {
		v := *a.ResponseMs
		ms = &v
	}
	return Outcome{
		Correct:    a.Correct,
		ResponseMs: ms,
		TermCount:  terms,
		UsedHelp:   a.UsedHelp,
	}
}

// SkipEvent records that the learner bypassed a skill's tutorial.
// Skips are tracked by the caller and fed to DetectAnomalies.
type SkipEvent struct {
	SkillID string    `json:"skill_id"`
	At      time.Time `json:"at"`
}
