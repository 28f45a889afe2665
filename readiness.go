package mastery

// Readiness is the result of evaluating the four-dimension gate for one
// skill. Each dimension carries its raw metrics next to its verdict so
// callers can always explain why a skill is not yet solid.
type Readiness struct {
	SkillID string `json:"skill_id"`
	Solid   bool   `json:"solid"` // all four dimensions met

	Mastery     MasteryDimension     `json:"mastery"`
	Volume      VolumeDimension      `json:"volume"`
	Speed       SpeedDimension       `json:"speed"`
	Consistency ConsistencyDimension `json:"consistency"`
}

// MasteryDimension gates on the BKT posterior and its evidence backing.
type MasteryDimension struct {
	PKnown     float64 `json:"p_known"`
	Confidence float64 `json:"confidence"`
	Met        bool    `json:"met"`
}

// VolumeDimension gates on exposure: enough opportunities spread over
// enough distinct sessions.
type VolumeDimension struct {
	Opportunities int  `json:"opportunities"`
	Sessions      int  `json:"sessions"`
	Met           bool `json:"met"`
}

// SpeedDimension gates on the median response time per term over the
// speed window. Sampled is false when fewer than a full window of
// attempts exist; the dimension is then not met by definition.
type SpeedDimension struct {
	MedianSecondsPerTerm float64 `json:"median_seconds_per_term"`
	Sampled              bool    `json:"sampled"`
	Met                  bool    `json:"met"`
}

// ConsistencyDimension gates on recent accuracy, a closing streak of
// correct answers, and the absence of help use.
type ConsistencyDimension struct {
	Accuracy float64 `json:"accuracy"`
	Samples  int     `json:"samples"`
	Streak   bool    `json:"streak"`    // last AllCorrectStreak attempts all correct
	HelpFree bool    `json:"help_free"` // no help in last HelpFreeStreak attempts
	Met      bool    `json:"met"`
}

// Assess evaluates the readiness gate for one skill.
// Pure and total: it never fails and never mutates the state.
func Assess(state BeliefState, t Thresholds) Readiness {
	r := Readiness{SkillID: state.SkillID}

	r.Mastery = MasteryDimension{
		PKnown:     state.PKnown,
		Confidence: state.Confidence,
		Met:        state.PKnown >= t.PKnown && state.Confidence >= t.Confidence,
	}

	r.Volume = VolumeDimension{
		Opportunities: state.Opportunities,
		Sessions:      state.SessionCount(),
		Met:           state.Opportunities >= t.MinOpportunities && state.SessionCount() >= t.MinSessions,
	}

	median, sampled := state.MedianSecondsPerTerm(t.SpeedWindow)
	r.Speed = SpeedDimension{
		MedianSecondsPerTerm: median,
		Sampled:              sampled,
		Met:                  sampled && median <= t.MaxMedianSecondsPerTerm,
	}

	accuracy, samples := state.RecentAccuracy(t.AccuracyWindow)
	streak := state.AllCorrect(t.AllCorrectStreak)
	helpFree := state.HelpFree(t.HelpFreeStreak)
	r.Consistency = ConsistencyDimension{
		Accuracy: accuracy,
		Samples:  samples,
		Streak:   streak,
		HelpFree: helpFree,
		Met:      samples > 0 && accuracy >= t.MinAccuracy && streak && helpFree,
	}

	r.Solid = r.Mastery.Met && r.Volume.Met && r.Speed.Met && r.Consistency.Met
	return r
}

// AssessAll evaluates the gate for every skill the player has attempted.
func AssessAll(states map[string]BeliefState, t Thresholds) map[string]Readiness {
	out := make(map[string]Readiness, len(states))
	for id, state := range states {
		out[id] = Assess(state, t)
	}
	return out
}
