package mastery

import (
	"sort"
	"time"
)

// PlannerConfig tunes the session-mode classifier.
// Zero values are replaced with defaults.
type PlannerConfig struct {
	StrugglingFloor  float64 `json:"struggling_floor"`  // default 0.6; trips faster and lower than the readiness gate
	StrugglingWindow int     `json:"struggling_window"` // default 10
	MinSample        int     `json:"min_sample"`        // default 5; attempts required before a skill can be judged struggling
}

// DefaultPlannerConfig are the production planner settings.
var DefaultPlannerConfig = PlannerConfig{
	StrugglingFloor:  0.6,
	StrugglingWindow: 10,
	MinSample:        5,
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.StrugglingFloor == 0 {
		c.StrugglingFloor = DefaultPlannerConfig.StrugglingFloor
	}
	if c.StrugglingWindow == 0 {
		c.StrugglingWindow = DefaultPlannerConfig.StrugglingWindow
	}
	if c.MinSample == 0 {
		c.MinSample = DefaultPlannerConfig.MinSample
	}
	return c
}

// Plan is the session recommendation for a player, recomputed fresh on
// every call. Comfort estimates are display-only and never feed back
// into mode selection.
type Plan struct {
	Mode Mode `json:"mode"`

	// Comfort estimates how comfortable the learner would likely feel
	// in a session of each character, from recent accuracy over the
	// skills relevant to that mode.
	Comfort        map[Mode]float64 `json:"comfort"`
	OverallComfort float64          `json:"overall_comfort"`

	Struggling []string `json:"struggling,omitempty"` // skills below the struggling floor
	Ready      []string `json:"ready,omitempty"`      // solid and not deferred
	Deferred   []string `json:"deferred,omitempty"`   // solid but under an active deferral
}

// PlanSession classifies the player's next session from the full set of
// belief states and any live deferrals.
//
// The rules, in strict precedence order:
//
//  1. remediation: any skill's recent accuracy is below the struggling
//     floor; an actively confused learner is never advanced past.
//  2. progression: no struggling skill, and at least one skill is solid
//     under the readiness gate and not vetoed by an active deferral.
//  3. maintenance: the fallback, nothing urgent and nothing ready.
func PlanSession(states map[string]BeliefState, deferrals []Deferral, t Thresholds, cfg PlannerConfig, now time.Time) Plan {
	cfg = cfg.withDefaults()

	active := make(map[string]bool, len(deferrals))
	for _, d := range deferrals {
		if d.ActiveAt(now) {
			active[d.SkillID] = true
		}
	}

	plan := Plan{Comfort: make(map[Mode]float64, 3)}

	var all, struggling, ready []accSample

	for id, state := range states {
		accuracy, samples := state.RecentAccuracy(cfg.StrugglingWindow)
		if samples > 0 {
			all = append(all, accSample{accuracy, samples})
		}

		if samples >= cfg.MinSample && accuracy < cfg.StrugglingFloor {
			plan.Struggling = append(plan.Struggling, id)
			struggling = append(struggling, accSample{accuracy, samples})
			continue
		}

		if Assess(state, t).Solid {
			if active[id] {
				plan.Deferred = append(plan.Deferred, id)
			} else {
				plan.Ready = append(plan.Ready, id)
				ready = append(ready, accSample{accuracy, samples})
			}
		}
	}
	sort.Strings(plan.Struggling)
	sort.Strings(plan.Ready)
	sort.Strings(plan.Deferred)

	switch {
	case len(plan.Struggling) > 0:
		plan.Mode = Remediation
	case len(plan.Ready) > 0:
		plan.Mode = Progression
	default:
		plan.Mode = Maintenance
	}

	overall := weightedAccuracy(all)
	plan.OverallComfort = overall
	plan.Comfort[Maintenance] = overall
	plan.Comfort[Remediation] = fallback(weightedAccuracy(struggling), len(struggling) > 0, overall)
	plan.Comfort[Progression] = fallback(weightedAccuracy(ready), len(ready) > 0, overall)

	return plan
}

// accSample is one skill's recent accuracy weighted by how many
// attempts back it.
type accSample struct {
	accuracy float64
	weight   int
}

func weightedAccuracy(samples []accSample) float64 {
	var sum float64
	var total int
	for _, s := range samples {
		sum += s.accuracy * float64(s.weight)
		total += s.weight
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

func fallback(v float64, ok bool, def float64) float64 {
	if ok {
		return v
	}
	return def
}
