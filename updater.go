package mastery

import (
	"fmt"
	"math"
)

// Updater applies practice attempts to belief states using two-parameter
// Bayesian Knowledge Tracing with slip/guess observation noise.
type Updater struct {
	params Params
}

// NewUpdater creates an Updater from the given parameters.
// A zero Params value selects DefaultParams; invalid values return an error.
func NewUpdater(p Params) (*Updater, error) {
	if p == (Params{}) {
		p = DefaultParams
	}
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	return &Updater{params: p}, nil
}

// Params returns the updater's parameters.
func (u *Updater) Params() Params {
	return u.params
}

// NewState creates the belief state for a skill's first attempt,
// seeded with the prior mastery probability.
func (u *Updater) NewState(skillID string) BeliefState {
	return BeliefState{
		SkillID: skillID,
		PKnown:  u.params.Prior,
		window:  newRing(u.params.WindowCap),
	}
}

// ApplyAttempt applies one attempt to the belief state and returns the
// new state. The input state is not mutated; persistence is the
// caller's responsibility.
//
// Only first attempts at a problem update the posterior and the
// opportunity count; retries still enter the rolling window and
// refresh LastPracticed, since they are real evidence of fluency.
func (u *Updater) ApplyAttempt(state BeliefState, attempt Attempt) (BeliefState, error) {
	if err := attempt.Validate(); err != nil {
		return BeliefState{}, err
	}
	if attempt.SkillID != state.SkillID {
		return BeliefState{}, fmt.Errorf("%w: state %q, attempt %q",
			ErrSkillMismatch, state.SkillID, attempt.SkillID)
	}

	s := state.Clone()

	if !attempt.Retry {
		s.PKnown = u.posterior(s.PKnown, attempt.Correct)
		s.Opportunities++
		s.Confidence = confidence(s.Opportunities, u.params.ConfidenceScale)
	}

	s.window.push(attempt.outcome())
	s.recordSession(attempt.SessionID)
	s.LastPracticed = attempt.At
	if attempt.Correct {
		t := attempt.At
		s.LastCorrect = &t
	}
	return s, nil
}

// Replay rebuilds a belief state by applying attempts in order.
// Each attempt sees the posterior produced by the previous one.
func (u *Updater) Replay(state BeliefState, attempts []Attempt) (BeliefState, error) {
	s := state.Clone()
	var err error
	for _, a := range attempts {
		s, err = u.ApplyAttempt(s, a)
		if err != nil {
			return BeliefState{}, err
		}
	}
	return s, nil
}

// PCorrect returns the predicted probability that the learner answers
// the next first attempt correctly: P(L)·(1−slip) + (1−P(L))·guess.
func (u *Updater) PCorrect(state BeliefState) float64 {
	return state.PKnown*(1-u.params.Slip) + (1-state.PKnown)*u.params.Guess
}

// posterior runs one BKT update on the mastery probability.
//
// Evidence step:
//
//	correct:   P(L|obs) = P(L)·(1−slip) / (P(L)·(1−slip) + (1−P(L))·guess)
//	incorrect: P(L|obs) = P(L)·slip / (P(L)·slip + (1−P(L))·(1−guess))
//
// Learning step:
//
//	P(L)' = P(L|obs) + (1 − P(L|obs))·transit
//
// The result is clamped to [0, 1] to absorb floating-point drift.
func (u *Updater) posterior(p0 float64, correct bool) float64 {
	slip, guess := u.params.Slip, u.params.Guess

	evidence := p0
	if correct {
		denom := p0*(1-slip) + (1-p0)*guess
		if denom > 0 {
			evidence = p0 * (1 - slip) / denom
		}
	} else {
		denom := p0*slip + (1-p0)*(1-guess)
		if denom > 0 {
			evidence = p0 * slip / denom
		}
	}

	pNew := evidence + (1-evidence)*u.params.Transit
	return clamp01(pNew)
}

// confidence is a saturating function of the opportunity count:
// n / (n + scale). It starts near 0, approaches 1 asymptotically, and
// is deliberately independent of PKnown so a lucky early streak cannot
// look well-evidenced.
func confidence(opportunities int, scale float64) float64 {
	n := float64(opportunities)
	return n / (n + scale)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}
