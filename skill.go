package mastery

import (
	"fmt"
	"sort"
)

// Skill is an immutable catalog entry for one unit of abacus competence,
// e.g. "ten-complement addition, 9 = 10 − 1".
type Skill struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Prereqs  []string `json:"prereqs,omitempty"`
}

// Catalog is the fixed set of skills known to the engine.
// Operations referencing a skill outside the catalog fail with
// ErrUnknownSkill; the engine never invents a default belief state
// for an unrecognized ID.
type Catalog struct {
	skills map[string]Skill
}

// NewCatalog builds a catalog from the given skills.
// Returns ErrDuplicateSkill if two skills share an ID.
func NewCatalog(skills ...Skill) (*Catalog, error) {
	m := make(map[string]Skill, len(skills))
	for _, s := range skills {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty skill ID", ErrUnknownSkill)
		}
		if _, ok := m[s.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSkill, s.ID)
		}
		m[s.ID] = s
	}
	return &Catalog{skills: m}, nil
}

// Lookup returns the skill with the given ID.
func (c *Catalog) Lookup(id string) (Skill, error) {
	s, ok := c.skills[id]
	if !ok {
		return Skill{}, fmt.Errorf("%w: %q", ErrUnknownSkill, id)
	}
	return s, nil
}

// Has reports whether the catalog contains the given skill ID.
func (c *Catalog) Has(id string) bool {
	_, ok := c.skills[id]
	return ok
}

// Len returns the number of skills in the catalog.
func (c *Catalog) Len() int {
	return len(c.skills)
}

// Skills returns all catalog entries sorted by ID.
func (c *Catalog) Skills() []Skill {
	out := make([]Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
