package mastery

import (
	"encoding/json"
	"sort"
	"time"
)

// BeliefState is the per-(player, skill) record of what the engine
// believes about one skill. It is created on the first attempt at a
// skill and mutated (by value; see Updater.ApplyAttempt) on every
// subsequent attempt.
type BeliefState struct {
	SkillID       string
	PKnown        float64 // posterior probability the skill is mastered, in [0, 1]
	Confidence    float64 // evidence-backed confidence in PKnown, in [0, 1)
	Opportunities int     // first-attempt exposures; retries excluded
	LastPracticed time.Time
	LastCorrect   *time.Time // nil until the first correct attempt

	sessions map[string]struct{}
	window   ring
}

// Clone returns a deep copy of the state. Pointer and reference fields
// are copied by value so the original is never aliased.
func (s BeliefState) Clone() BeliefState {
	out := s
	if s.LastCorrect != nil {
		v := *s.LastCorrect
		out.LastCorrect = &v
	}
	if s.sessions != nil {
		out.sessions = make(map[string]struct{}, len(s.sessions))
		for id := range s.sessions {
			out.sessions[id] = struct{}{}
		}
	}
	out.window = s.window.clone()
	return out
}

func (s *BeliefState) recordSession(id string) {
	if id == "" {
		return
	}
	if s.sessions == nil {
		s.sessions = make(map[string]struct{}, 4)
	}
	s.sessions[id] = struct{}{}
}

// SessionCount returns the number of distinct sessions in which the
// skill has appeared.
func (s BeliefState) SessionCount() int {
	return len(s.sessions)
}

// Sessions returns the distinct session IDs sorted lexicographically.
func (s BeliefState) Sessions() []string {
	if len(s.sessions) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Window returns the rolling attempt window, oldest first.
func (s BeliefState) Window() []Outcome {
	return s.window.last(s.window.len())
}

// WindowLen returns the number of attempts currently in the window.
func (s BeliefState) WindowLen() int {
	return s.window.len()
}

// RecentAccuracy returns the fraction of correct attempts among the most
// recent n window entries, along with the number of entries sampled.
// Fewer than n entries may exist; samples reports how many were used.
func (s BeliefState) RecentAccuracy(n int) (accuracy float64, samples int) {
	out := s.window.last(n)
	if len(out) == 0 {
		return 0, 0
	}
	correct := 0
	for _, o := range out {
		if o.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(out)), len(out)
}

// MedianSecondsPerTerm returns the median normalized response time over
// the most recent n attempts. ok is false when fewer than n attempts
// exist or none of them carry a response time.
func (s BeliefState) MedianSecondsPerTerm(n int) (median float64, ok bool) {
	if s.window.len() < n || n <= 0 {
		return 0, false
	}
	var times []float64
	for _, o := range s.window.last(n) {
		if spt, has := o.secondsPerTerm(); has {
			times = append(times, spt)
		}
	}
	if len(times) == 0 {
		return 0, false
	}
	sort.Float64s(times)
	mid := len(times) / 2
	if len(times)%2 == 1 {
		return times[mid], true
	}
	return (times[mid-1] + times[mid]) / 2, true
}

// AllCorrect reports whether the most recent n attempts were all correct.
// False when fewer than n attempts exist.
func (s BeliefState) AllCorrect(n int) bool {
	if s.window.len() < n || n <= 0 {
		return false
	}
	for _, o := range s.window.last(n) {
		if !o.Correct {
			return false
		}
	}
	return true
}

// HelpFree reports whether none of the most recent n attempts used help.
// False when fewer than n attempts exist.
func (s BeliefState) HelpFree(n int) bool {
	if s.window.len() < n || n <= 0 {
		return false
	}
	for _, o := range s.window.last(n) {
		if o.UsedHelp {
			return false
		}
	}
	return true
}

// stateJSON is the serialized form of a BeliefState.
type stateJSON struct {
	SkillID       string     `json:"skill_id"`
	PKnown        float64    `json:"p_known"`
	Confidence    float64    `json:"confidence"`
	Opportunities int        `json:"opportunities"`
	Sessions      []string   `json:"sessions,omitempty"`
	Window        []Outcome  `json:"window,omitempty"` // oldest first
	WindowCap     int        `json:"window_cap"`
	LastPracticed time.Time  `json:"last_practiced"`
	LastCorrect   *time.Time `json:"last_correct,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s BeliefState) MarshalJSON() ([]byte, error) {
	capacity := len(s.window.buf)
	if capacity == 0 {
		capacity = DefaultParams.WindowCap
	}
	return json.Marshal(stateJSON{
		SkillID:       s.SkillID,
		PKnown:        s.PKnown,
		Confidence:    s.Confidence,
		Opportunities: s.Opportunities,
		Sessions:      s.Sessions(),
		Window:        s.Window(),
		WindowCap:     capacity,
		LastPracticed: s.LastPracticed,
		LastCorrect:   s.LastCorrect,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// It rebuilds the session set and rolling window from the serialized form.
func (s *BeliefState) UnmarshalJSON(data []byte) error {
	var j stateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	out := BeliefState{
		SkillID:       j.SkillID,
		PKnown:        j.PKnown,
		Confidence:    j.Confidence,
		Opportunities: j.Opportunities,
		LastPracticed: j.LastPracticed,
		LastCorrect:   j.LastCorrect,
	}
	for _, id := range j.Sessions {
		out.recordSession(id)
	}
	capacity := j.WindowCap
	if capacity < len(j.Window) {
		capacity = len(j.Window)
	}
	out.window = newRing(capacity)
	for _, o := range j.Window {
		out.window.push(o)
	}
	*s = out
	return nil
}
