package mastery

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const epsilon = 1e-6

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > epsilon {
		t.Errorf("%s = %.6f, want %.6f (diff %.6f)", name, got, want, diff)
	}
}

func mustUpdater(t *testing.T, p Params) *Updater {
	t.Helper()
	u, err := NewUpdater(p)
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	return u
}

// attempt builds a correct/incorrect first attempt with a response time.
func attempt(skill, session string, correct bool, ms int, at time.Time) Attempt {
	return Attempt{
		SkillID:    skill,
		SessionID:  session,
		Correct:    correct,
		ResponseMs: &ms,
		TermCount:  1,
		At:         at,
	}
}

// --- NewUpdater ---

func TestNewUpdaterDefault(t *testing.T) {
	u := mustUpdater(t, Params{})
	if u.Params() != DefaultParams {
		t.Errorf("Params() = %+v, want DefaultParams", u.Params())
	}
}

func TestNewUpdaterInvalidParams(t *testing.T) {
	cases := []Params{
		{Prior: -0.1, Slip: 0.1, Guess: 0.2, Transit: 0.15, ConfidenceScale: 5, WindowCap: 15},
		{Prior: 0.1, Slip: 0.6, Guess: 0.2, Transit: 0.15, ConfidenceScale: 5, WindowCap: 15},
		{Prior: 0.1, Slip: 0.1, Guess: 0.9, Transit: 0.15, ConfidenceScale: 5, WindowCap: 15},
		{Prior: 0.1, Slip: 0.1, Guess: 0.2, Transit: 0, ConfidenceScale: 5, WindowCap: 15},
		{Prior: 0.1, Slip: 0.1, Guess: 0.2, Transit: 0.15, ConfidenceScale: 5, WindowCap: 0},
	}
	for i, p := range cases {
		if _, err := NewUpdater(p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("case %d: NewUpdater err = %v, want ErrInvalidParams", i, err)
		}
	}
}

// --- ApplyAttempt: posterior math ---

func TestApplyAttemptCorrect(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")

	// p0=0.1, slip=0.1, guess=0.2, transit=0.15
	// evidence = 0.1*0.9 / (0.1*0.9 + 0.9*0.2) = 0.09/0.27 = 1/3
	// pNew = 1/3 + (2/3)*0.15 = 0.433333
	got, err := u.ApplyAttempt(state, attempt("s1", "sess1", true, 1500, t0))
	if err != nil {
		t.Fatalf("ApplyAttempt: %v", err)
	}
	assertFloat(t, "PKnown", got.PKnown, 0.433333)
	if got.Opportunities != 1 {
		t.Errorf("Opportunities = %d, want 1", got.Opportunities)
	}
}

func TestApplyAttemptIncorrect(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")

	// evidence = 0.1*0.1 / (0.1*0.1 + 0.9*0.8) = 0.01/0.73 = 0.0136986
	// pNew = 0.0136986 + 0.9863014*0.15 = 0.161644
	got, err := u.ApplyAttempt(state, attempt("s1", "sess1", false, 1500, t0))
	if err != nil {
		t.Fatalf("ApplyAttempt: %v", err)
	}
	assertFloat(t, "PKnown", got.PKnown, 0.161644)
}

func TestCorrectNeverBelowIncorrect(t *testing.T) {
	// From the same p0, a correct attempt always lands at or above an
	// incorrect one, for any valid parameter combination.
	for _, slip := range []float64{0.001, 0.1, 0.3, 0.5} {
		for _, guess := range []float64{0.001, 0.2, 0.4, 0.5} {
			for _, transit := range []float64{0.001, 0.15, 0.6, 0.99} {
				for _, p0 := range []float64{0, 0.1, 0.5, 0.9, 1} {
					u := mustUpdater(t, Params{
						Prior: 0.1, Slip: slip, Guess: guess, Transit: transit,
						ConfidenceScale: 5, WindowCap: 15,
					})
					state := u.NewState("s1")
					state.PKnown = p0
					right, _ := u.ApplyAttempt(state, attempt("s1", "x", true, 1000, t0))
					wrong, _ := u.ApplyAttempt(state, attempt("s1", "x", false, 1000, t0))
					if right.PKnown < wrong.PKnown-epsilon {
						t.Fatalf("pNew(correct)=%.6f < pNew(incorrect)=%.6f at p0=%.2f slip=%.3f guess=%.3f transit=%.3f",
							right.PKnown, wrong.PKnown, p0, slip, guess, transit)
					}
				}
			}
		}
	}
}

func TestPKnownStaysClamped(t *testing.T) {
	// Degenerate posteriors at the parameter bounds must stay in [0, 1].
	u := mustUpdater(t, Params{
		Prior: 0, Slip: 0.5, Guess: 0.5, Transit: 0.99,
		ConfidenceScale: 1, WindowCap: 15,
	})
	state := u.NewState("s1")
	for i := 0; i < 50; i++ {
		var err error
		state, err = u.ApplyAttempt(state, attempt("s1", "x", i%2 == 0, 1000, t0))
		if err != nil {
			t.Fatalf("ApplyAttempt: %v", err)
		}
		if state.PKnown < 0 || state.PKnown > 1 {
			t.Fatalf("PKnown = %f out of [0, 1] after %d attempts", state.PKnown, i+1)
		}
	}
}

// --- Confidence ---

func TestConfidenceMonotone(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")
	prev := state.Confidence
	if prev != 0 {
		t.Errorf("initial Confidence = %f, want 0", prev)
	}
	for i := 0; i < 30; i++ {
		state, _ = u.ApplyAttempt(state, attempt("s1", "x", i%3 != 0, 1000, t0))
		if state.Confidence < prev {
			t.Fatalf("Confidence decreased: %f -> %f at opportunity %d", prev, state.Confidence, i+1)
		}
		if state.Confidence >= 1 {
			t.Fatalf("Confidence = %f, must stay below 1", state.Confidence)
		}
		prev = state.Confidence
	}
}

func TestConfidenceIndependentOfPKnown(t *testing.T) {
	u := mustUpdater(t, Params{})

	// Five straight correct answers vs five straight misses: same
	// confidence, wildly different pKnown.
	lucky := u.NewState("s1")
	unlucky := u.NewState("s1")
	for i := 0; i < 5; i++ {
		lucky, _ = u.ApplyAttempt(lucky, attempt("s1", "x", true, 1000, t0))
		unlucky, _ = u.ApplyAttempt(unlucky, attempt("s1", "x", false, 1000, t0))
	}
	assertFloat(t, "Confidence(lucky) vs Confidence(unlucky)", lucky.Confidence, unlucky.Confidence)
	// n/(n+scale) = 5/10 = 0.5
	assertFloat(t, "Confidence", lucky.Confidence, 0.5)
}

// --- Retries ---

func TestRetryDoesNotDoubleCount(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")
	state, _ = u.ApplyAttempt(state, attempt("s1", "sess1", false, 2000, t0))

	retry := attempt("s1", "sess1", true, 1800, t0.Add(time.Minute))
	retry.Retry = true
	got, err := u.ApplyAttempt(state, retry)
	if err != nil {
		t.Fatalf("ApplyAttempt: %v", err)
	}
	if got.Opportunities != 1 {
		t.Errorf("Opportunities = %d, want 1 (retry must not count)", got.Opportunities)
	}
	assertFloat(t, "PKnown after retry", got.PKnown, state.PKnown)
	if got.WindowLen() != 2 {
		t.Errorf("WindowLen = %d, want 2 (retry still enters the window)", got.WindowLen())
	}
	if !got.LastPracticed.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastPracticed = %v, want %v", got.LastPracticed, t0.Add(time.Minute))
	}
}

// --- Bookkeeping ---

func TestApplyAttemptBookkeeping(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")

	state, _ = u.ApplyAttempt(state, attempt("s1", "sess1", false, 2000, t0))
	state, _ = u.ApplyAttempt(state, attempt("s1", "sess1", true, 1500, t0.Add(time.Minute)))
	state, _ = u.ApplyAttempt(state, attempt("s1", "sess2", true, 1200, t0.Add(time.Hour)))

	if got := state.SessionCount(); got != 2 {
		t.Errorf("SessionCount = %d, want 2", got)
	}
	if state.LastCorrect == nil || !state.LastCorrect.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastCorrect = %v, want %v", state.LastCorrect, t0.Add(time.Hour))
	}
	if got := state.Opportunities; got != 3 {
		t.Errorf("Opportunities = %d, want 3", got)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")

	// 20 attempts into a capacity-15 window: the first 5 fall out.
	for i := 0; i < 20; i++ {
		state, _ = u.ApplyAttempt(state, attempt("s1", "x", i >= 5, 1000, t0.Add(time.Duration(i)*time.Minute)))
	}
	if got := state.WindowLen(); got != 15 {
		t.Fatalf("WindowLen = %d, want 15", got)
	}
	for i, o := range state.Window() {
		if !o.Correct {
			t.Errorf("window[%d].Correct = false, want true (incorrect entries evicted)", i)
		}
	}
}

func TestApplyAttemptDoesNotMutateInput(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")
	state, _ = u.ApplyAttempt(state, attempt("s1", "sess1", true, 1000, t0))

	before := state.Clone()
	if _, err := u.ApplyAttempt(state, attempt("s1", "sess2", false, 900, t0.Add(time.Minute))); err != nil {
		t.Fatalf("ApplyAttempt: %v", err)
	}
	if state.PKnown != before.PKnown || state.Opportunities != before.Opportunities ||
		state.WindowLen() != before.WindowLen() || state.SessionCount() != before.SessionCount() {
		t.Error("ApplyAttempt mutated its input state")
	}
}

// --- Validation ---

func TestApplyAttemptRejectsMalformed(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")

	empty := attempt("", "x", true, 1000, t0)
	if _, err := u.ApplyAttempt(state, empty); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("empty skill ID: err = %v, want ErrInvalidAttempt", err)
	}

	negative := attempt("s1", "x", true, -5, t0)
	if _, err := u.ApplyAttempt(state, negative); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("negative response time: err = %v, want ErrInvalidAttempt", err)
	}
}

func TestApplyAttemptSkillMismatch(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")
	if _, err := u.ApplyAttempt(state, attempt("s2", "x", true, 1000, t0)); !errors.Is(err, ErrSkillMismatch) {
		t.Errorf("err = %v, want ErrSkillMismatch", err)
	}
}

// --- Replay ---

func TestReplayMatchesSequentialApply(t *testing.T) {
	u := mustUpdater(t, Params{})

	var attempts []Attempt
	for i := 0; i < 12; i++ {
		attempts = append(attempts, attempt("s1", fmt.Sprintf("sess%d", i/4), i%4 != 0, 1000+i*50, t0.Add(time.Duration(i)*time.Minute)))
	}

	replayed, err := u.Replay(u.NewState("s1"), attempts)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	manual := u.NewState("s1")
	for _, a := range attempts {
		manual, _ = u.ApplyAttempt(manual, a)
	}

	assertFloat(t, "PKnown", replayed.PKnown, manual.PKnown)
	if replayed.Opportunities != manual.Opportunities {
		t.Errorf("Opportunities = %d, want %d", replayed.Opportunities, manual.Opportunities)
	}
	if replayed.SessionCount() != manual.SessionCount() {
		t.Errorf("SessionCount = %d, want %d", replayed.SessionCount(), manual.SessionCount())
	}
}

// --- PCorrect ---

func TestPCorrect(t *testing.T) {
	u := mustUpdater(t, Params{})
	state := u.NewState("s1")
	// 0.1*0.9 + 0.9*0.2 = 0.27
	assertFloat(t, "PCorrect", u.PCorrect(state), 0.27)

	state.PKnown = 1
	// 1*0.9 + 0*0.2 = 0.9
	assertFloat(t, "PCorrect at PKnown=1", u.PCorrect(state), 0.9)
}
