package calibrate

import (
	"sort"

	"github.com/soroban-labs/mastery"
)

// formatAttempts groups attempts by skill ID and sorts each group by
// time. Retries are dropped: they never move the posterior, so they
// carry no training signal.
func formatAttempts(attempts []mastery.Attempt) map[string][]mastery.Attempt {
	if len(attempts) == 0 {
		return nil
	}

	groups := make(map[string][]mastery.Attempt)
	for _, a := range attempts {
		if a.Retry {
			continue
		}
		groups[a.SkillID] = append(groups[a.SkillID], a)
	}

	for skillID, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].At.Before(group[j].At)
		})
		groups[skillID] = group
	}

	return groups
}

// countScoredAttempts counts the attempts that contribute to the loss.
// Every first attempt is scored, including a skill's very first one:
// the prior itself is a trained value.
func countScoredAttempts(data map[string][]mastery.Attempt) int {
	count := 0
	for _, group := range data {
		count += len(group)
	}
	return count
}
