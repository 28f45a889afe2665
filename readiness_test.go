package mastery

import "testing"

// solidState builds a belief state that clears all four dimensions:
// 25 opportunities over 4 sessions, a full window of fast answers at
// 14/15 accuracy with the last 5 correct and help-free, pKnown=0.9,
// confidence=0.8.
func solidState(skillID string) BeliefState {
	s := BeliefState{
		SkillID:       skillID,
		PKnown:        0.9,
		Confidence:    0.8,
		Opportunities: 25,
		LastPracticed: t0,
		window:        newRing(15),
	}
	for _, sess := range []string{"sess1", "sess2", "sess3", "sess4"} {
		s.recordSession(sess)
	}
	ms := 1500
	for i := 0; i < 15; i++ {
		s.window.push(Outcome{
			Correct:    i != 0, // one early miss: 14/15 ≈ 0.933
			ResponseMs: &ms,    // 1.5 s/term
			TermCount:  1,
		})
	}
	return s
}

func TestAssessSolid(t *testing.T) {
	r := Assess(solidState("s1"), DefaultThresholds)

	if !r.Solid {
		t.Fatalf("Solid = false, want true: %+v", r)
	}
	for name, met := range map[string]bool{
		"mastery":     r.Mastery.Met,
		"volume":      r.Volume.Met,
		"speed":       r.Speed.Met,
		"consistency": r.Consistency.Met,
	} {
		if !met {
			t.Errorf("%s.Met = false, want true", name)
		}
	}
	assertFloat(t, "Speed.MedianSecondsPerTerm", r.Speed.MedianSecondsPerTerm, 1.5)
	assertFloat(t, "Consistency.Accuracy", r.Consistency.Accuracy, 14.0/15.0)
}

func TestAssessTooFewOpportunities(t *testing.T) {
	s := solidState("s1")
	s.Opportunities = 15

	r := Assess(s, DefaultThresholds)
	if r.Solid {
		t.Error("Solid = true, want false with 15 opportunities")
	}
	if r.Volume.Met {
		t.Error("Volume.Met = true, want false")
	}
	if !r.Mastery.Met || !r.Speed.Met || !r.Consistency.Met {
		t.Error("only the volume dimension should fail")
	}
}

func TestAssessLowPKnown(t *testing.T) {
	s := solidState("s1")
	s.PKnown = 0.7

	r := Assess(s, DefaultThresholds)
	if r.Solid || r.Mastery.Met {
		t.Error("mastery dimension should fail at pKnown=0.7")
	}
	if !r.Volume.Met || !r.Speed.Met || !r.Consistency.Met {
		t.Error("only the mastery dimension should fail")
	}
}

func TestAssessLowConfidence(t *testing.T) {
	s := solidState("s1")
	s.Confidence = 0.3

	r := Assess(s, DefaultThresholds)
	if r.Solid || r.Mastery.Met {
		t.Error("mastery dimension should fail at confidence=0.3")
	}
}

func TestAssessTooFewSessions(t *testing.T) {
	s := solidState("s1")
	s.sessions = nil
	s.recordSession("sess1")
	s.recordSession("sess2")

	r := Assess(s, DefaultThresholds)
	if r.Solid || r.Volume.Met {
		t.Error("volume dimension should fail with 2 sessions")
	}
}

func TestAssessSlow(t *testing.T) {
	s := solidState("s1")
	slow := 9000
	for i := 0; i < 15; i++ {
		s.window.push(Outcome{Correct: true, ResponseMs: &slow, TermCount: 2}) // 4.5 s/term
	}

	r := Assess(s, DefaultThresholds)
	if r.Solid || r.Speed.Met {
		t.Error("speed dimension should fail at 4.5 s/term")
	}
	if !r.Speed.Sampled {
		t.Error("Speed.Sampled = false, want true with a full window")
	}
	if !r.Consistency.Met {
		t.Error("only the speed dimension should fail")
	}
}

func TestAssessSpeedUndefinedBelowFullWindow(t *testing.T) {
	s := solidState("s1")
	s.window = newRing(15)
	ms := 1000
	for i := 0; i < 9; i++ { // one short of the speed window
		s.window.push(Outcome{Correct: true, ResponseMs: &ms, TermCount: 1})
	}

	r := Assess(s, DefaultThresholds)
	if r.Speed.Sampled {
		t.Error("Speed.Sampled = true, want false below a full window")
	}
	if r.Speed.Met {
		t.Error("Speed.Met = true, want false when undefined")
	}
	if r.Solid {
		t.Error("Solid = true, want false")
	}
}

func TestAssessBrokenStreak(t *testing.T) {
	s := solidState("s1")
	ms := 1500
	s.window.push(Outcome{Correct: false, ResponseMs: &ms, TermCount: 1})

	r := Assess(s, DefaultThresholds)
	if r.Consistency.Streak {
		t.Error("Consistency.Streak = true, want false after a recent miss")
	}
	if r.Solid || r.Consistency.Met {
		t.Error("consistency dimension should fail on a broken streak")
	}
}

func TestAssessRecentHelpUse(t *testing.T) {
	s := solidState("s1")
	ms := 1500
	s.window.push(Outcome{Correct: true, ResponseMs: &ms, TermCount: 1, UsedHelp: true})

	r := Assess(s, DefaultThresholds)
	if r.Consistency.HelpFree {
		t.Error("Consistency.HelpFree = true, want false after recent help use")
	}
	if r.Solid || r.Consistency.Met {
		t.Error("consistency dimension should fail on recent help use")
	}
}

func TestAssessEmptyState(t *testing.T) {
	r := Assess(BeliefState{SkillID: "s1"}, DefaultThresholds)
	if r.Solid {
		t.Error("Solid = true for an empty state")
	}
	if r.Mastery.Met || r.Volume.Met || r.Speed.Met || r.Consistency.Met {
		t.Error("no dimension should be met for an empty state")
	}
}

func TestAssessAll(t *testing.T) {
	states := map[string]BeliefState{
		"s1": solidState("s1"),
		"s2": {SkillID: "s2"},
	}
	got := AssessAll(states, DefaultThresholds)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got["s1"].Solid {
		t.Error("s1 should be solid")
	}
	if got["s2"].Solid {
		t.Error("s2 should not be solid")
	}
}

func TestValidateThresholds(t *testing.T) {
	if err := ValidateThresholds(DefaultThresholds); err != nil {
		t.Errorf("DefaultThresholds invalid: %v", err)
	}

	bad := DefaultThresholds
	bad.MinAccuracy = 1.5
	if err := ValidateThresholds(bad); err == nil {
		t.Error("ValidateThresholds should reject min_accuracy > 1")
	}

	bad = DefaultThresholds
	bad.SpeedWindow = 0
	if err := ValidateThresholds(bad); err == nil {
		t.Error("ValidateThresholds should reject a zero speed window")
	}
}
