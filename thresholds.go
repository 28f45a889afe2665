package mastery

import "fmt"

// Thresholds are the tunable knobs of the four-dimension readiness gate.
// They are policy data, never hard-coded into the gate logic.
type Thresholds struct {
	PKnown                  float64 `json:"p_known"`
	Confidence              float64 `json:"confidence"`
	MinOpportunities        int     `json:"min_opportunities"`
	MinSessions             int     `json:"min_sessions"`
	SpeedWindow             int     `json:"speed_window"`
	MaxMedianSecondsPerTerm float64 `json:"max_median_seconds_per_term"`
	AccuracyWindow          int     `json:"accuracy_window"`
	MinAccuracy             float64 `json:"min_accuracy"`
	AllCorrectStreak        int     `json:"all_correct_streak"`
	HelpFreeStreak          int     `json:"help_free_streak"`
}

// DefaultThresholds are the production gate settings.
var DefaultThresholds = Thresholds{
	PKnown:                  0.85,
	Confidence:              0.5,
	MinOpportunities:        20,
	MinSessions:             3,
	SpeedWindow:             10,
	MaxMedianSecondsPerTerm: 4.0,
	AccuracyWindow:          15,
	MinAccuracy:             0.85,
	AllCorrectStreak:        5,
	HelpFreeStreak:          5,
}

// ValidateThresholds checks that every threshold is usable.
func ValidateThresholds(t Thresholds) error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"p_known", t.PKnown >= 0 && t.PKnown <= 1},
		{"confidence", t.Confidence >= 0 && t.Confidence <= 1},
		{"min_opportunities", t.MinOpportunities >= 1},
		{"min_sessions", t.MinSessions >= 1},
		{"speed_window", t.SpeedWindow >= 1},
		{"max_median_seconds_per_term", t.MaxMedianSecondsPerTerm > 0},
		{"accuracy_window", t.AccuracyWindow >= 1},
		{"min_accuracy", t.MinAccuracy >= 0 && t.MinAccuracy <= 1},
		{"all_correct_streak", t.AllCorrectStreak >= 1},
		{"help_free_streak", t.HelpFreeStreak >= 1},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidThresholds, c.name)
		}
	}
	return nil
}
