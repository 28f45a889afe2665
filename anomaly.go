package mastery

import (
	"encoding"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// AnomalyKind classifies a pathological practice pattern surfaced for
// teacher review.
type AnomalyKind int

const (
	RepeatedlySkipped    AnomalyKind = iota + 1 // tutorial bypassed repeatedly without a success in between
	MasteredNotPracticed                        // mastered skill going unused; spaced-repetition candidate
)

var (
	anomalyNames = [...]string{
		RepeatedlySkipped:    "repeatedly-skipped",
		MasteredNotPracticed: "mastered-not-practiced",
	}
	anomalyByName = map[string]AnomalyKind{
		"repeatedly-skipped":     RepeatedlySkipped,
		"mastered-not-practiced": MasteredNotPracticed,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = AnomalyKind(0)
	_ json.Marshaler           = AnomalyKind(0)
	_ json.Unmarshaler         = (*AnomalyKind)(nil)
	_ encoding.TextMarshaler   = AnomalyKind(0)
	_ encoding.TextUnmarshaler = (*AnomalyKind)(nil)
)

// IsValid reports whether k is a valid anomaly kind.
func (k AnomalyKind) IsValid() bool {
	return k >= RepeatedlySkipped && k <= MasteredNotPracticed
}

// String returns the name of the kind. For invalid values it returns
// "AnomalyKind(n)".
func (k AnomalyKind) String() string {
	if k.IsValid() {
		return anomalyNames[k]
	}
	return fmt.Sprintf("AnomalyKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k AnomalyKind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("mastery: invalid anomaly kind: %d", int(k))
	}
	return []byte(anomalyNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AnomalyKind) UnmarshalText(text []byte) error {
	v, ok := anomalyByName[string(text)]
	if !ok {
		return fmt.Errorf("mastery: invalid anomaly kind: %q", text)
	}
	*k = v
	return nil
}

// MarshalJSON implements json.Marshaler. AnomalyKind serializes as a JSON string.
func (k AnomalyKind) MarshalJSON() ([]byte, error) {
	text, err := k.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (k *AnomalyKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("mastery: invalid anomaly kind: %s", data)
	}
	return k.UnmarshalText([]byte(s))
}

// AnomalyConfig tunes anomaly detection. Zero values are replaced
// with defaults.
type AnomalyConfig struct {
	SkipLimit int           `json:"skip_limit"` // default 3
	Staleness time.Duration `json:"staleness"`  // default 14 days
}

// DefaultAnomalyConfig are the production detection settings.
var DefaultAnomalyConfig = AnomalyConfig{
	SkipLimit: 3,
	Staleness: 14 * 24 * time.Hour,
}

func (c AnomalyConfig) withDefaults() AnomalyConfig {
	if c.SkipLimit == 0 {
		c.SkipLimit = DefaultAnomalyConfig.SkipLimit
	}
	if c.Staleness == 0 {
		c.Staleness = DefaultAnomalyConfig.Staleness
	}
	return c
}

// Anomaly is one detected pattern, with the metrics that triggered it.
type Anomaly struct {
	SkillID string      `json:"skill_id"`
	Kind    AnomalyKind `json:"kind"`

	Skips         int       `json:"skips,omitempty"`          // repeatedly-skipped
	LastPracticed time.Time `json:"last_practiced,omitempty"` // mastered-not-practiced
	PKnown        float64   `json:"p_known,omitempty"`        // mastered-not-practiced
}

// DetectAnomalies scans a player's skill states and tutorial-skip
// events for the two pathological patterns. The conditions are
// independent: a skill may in principle produce both kinds.
//
// repeatedly-skipped counts skips since the last correct attempt (all
// skips, for a skill never answered correctly, including skills with
// no belief state at all).
//
// mastered-not-practiced requires only the mastery dimension, not the
// full gate: the speed and consistency windows freeze when practice
// stops, so the full gate would hide exactly the stale skills this
// report exists to surface.
func DetectAnomalies(states map[string]BeliefState, skips []SkipEvent, t Thresholds, cfg AnomalyConfig, now time.Time) []Anomaly {
	cfg = cfg.withDefaults()

	skipsSinceSuccess := make(map[string]int)
	for _, ev := range skips {
		state, ok := states[ev.SkillID]
		if ok && state.LastCorrect != nil && !ev.At.After(*state.LastCorrect) {
			continue
		}
		skipsSinceSuccess[ev.SkillID]++
	}

	var out []Anomaly
	for id, n := range skipsSinceSuccess {
		if n >= cfg.SkipLimit {
			out = append(out, Anomaly{SkillID: id, Kind: RepeatedlySkipped, Skips: n})
		}
	}

	for id, state := range states {
		if state.LastPracticed.IsZero() {
			continue
		}
		dim := Assess(state, t).Mastery
		if dim.Met && now.Sub(state.LastPracticed) >= cfg.Staleness {
			out = append(out, Anomaly{
				SkillID:       id,
				Kind:          MasteredNotPracticed,
				LastPracticed: state.LastPracticed,
				PKnown:        state.PKnown,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SkillID != out[j].SkillID {
			return out[i].SkillID < out[j].SkillID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
