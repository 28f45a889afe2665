package mastery

import "fmt"

// Params are the Bayesian Knowledge Tracing parameters for a skill.
// They are fixed policy, not estimated online; the mastery/calibrate
// subpackage fits them to historical attempt logs.
type Params struct {
	Prior           float64 `json:"prior"`            // P(L0): mastery probability before any evidence
	Slip            float64 `json:"slip"`             // P(incorrect | mastered)
	Guess           float64 `json:"guess"`            // P(correct | not mastered)
	Transit         float64 `json:"transit"`          // P(acquiring mastery between opportunities)
	ConfidenceScale float64 `json:"confidence_scale"` // opportunities at which confidence reaches 0.5
	WindowCap       int     `json:"window_cap"`       // rolling attempt window capacity
}

// DefaultParams are conservative global defaults in line with the
// published BKT literature; per-skill overrides are expected.
var DefaultParams = Params{
	Prior:           0.10,
	Slip:            0.10,
	Guess:           0.20,
	Transit:         0.15,
	ConfidenceScale: 5,
	WindowCap:       15,
}

type paramBound struct {
	name   string
	lo, hi float64
	get    func(Params) float64
}

// paramBounds defines the allowed range for each float parameter.
// Slip and guess are capped at 0.5: beyond that an observation would
// count as evidence for the opposite hypothesis.
var paramBounds = []paramBound{
	{"prior", 0, 0.95, func(p Params) float64 { return p.Prior }},
	{"slip", 0.001, 0.5, func(p Params) float64 { return p.Slip }},
	{"guess", 0.001, 0.5, func(p Params) float64 { return p.Guess }},
	{"transit", 0.001, 0.99, func(p Params) float64 { return p.Transit }},
	{"confidence_scale", 1, 100, func(p Params) float64 { return p.ConfidenceScale }},
}

// ValidateParams checks that every parameter is within its allowed range.
func ValidateParams(p Params) error {
	for _, b := range paramBounds {
		v := b.get(p)
		if v < b.lo || v > b.hi {
			return fmt.Errorf("%w: %s = %f, bounds [%f, %f]",
				ErrInvalidParams, b.name, v, b.lo, b.hi)
		}
	}
	if p.WindowCap < 1 || p.WindowCap > 1000 {
		return fmt.Errorf("%w: window_cap = %d, bounds [1, 1000]",
			ErrInvalidParams, p.WindowCap)
	}
	return nil
}
