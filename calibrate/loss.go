package calibrate

import (
	"math"

	"github.com/soroban-labs/mastery"
)

const bceClamp = 1e-7

// bceLoss computes the binary cross-entropy loss: -[y*ln(p) + (1-y)*ln(1-p)].
// p is clamped to [bceClamp, 1-bceClamp] to avoid log(0).
func bceLoss(p, y float64) float64 {
	p = math.Max(bceClamp, math.Min(p, 1-bceClamp))
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

// applyVector copies the trainable values onto the base parameters.
// Vector layout: [prior, slip, guess, transit].
func applyVector(base mastery.Params, w [nTrainable]float64) mastery.Params {
	base.Prior = w[0]
	base.Slip = w[1]
	base.Guess = w[2]
	base.Transit = w[3]
	return base
}

// vectorOf extracts the trainable values from parameters.
func vectorOf(p mastery.Params) [nTrainable]float64 {
	return [nTrainable]float64{p.Prior, p.Slip, p.Guess, p.Transit}
}

// computeBatchLoss computes the average BCE loss over all scored
// attempts in the batch. It builds an updater from the vector and
// replays each skill's attempt history, scoring the predicted
// P(correct) before every update. Returns 0 on an empty batch or an
// out-of-bounds vector.
func computeBatchLoss(base mastery.Params, w [nTrainable]float64, data map[string][]mastery.Attempt) float64 {
	u, err := mastery.NewUpdater(applyVector(base, w))
	if err != nil {
		return 0
	}

	var totalLoss float64
	var count int

	for skillID, attempts := range data {
		state := u.NewState(skillID)

		for _, a := range attempts {
			label := 0.0
			if a.Correct {
				label = 1.0
			}
			totalLoss += bceLoss(u.PCorrect(state), label)
			count++

			next, err := u.ApplyAttempt(state, a)
			if err != nil {
				continue // malformed rows are skipped, not fatal
			}
			state = next
		}
	}

	if count == 0 {
		return 0
	}
	return totalLoss / float64(count)
}

const gradEps = 1e-5

// numericalGradient computes the gradient of the batch loss w.r.t. each
// trainable value using central differences:
// dL/dw[i] ≈ (L(w[i]+ε) - L(w[i]-ε)) / (2ε).
func numericalGradient(base mastery.Params, w [nTrainable]float64, data map[string][]mastery.Attempt) [nTrainable]float64 {
	var grad [nTrainable]float64
	for i := 0; i < nTrainable; i++ {
		wPlus := w
		wPlus[i] += gradEps
		wMinus := w
		wMinus[i] -= gradEps

		lPlus := computeBatchLoss(base, clampVector(wPlus), data)
		lMinus := computeBatchLoss(base, clampVector(wMinus), data)

		grad[i] = (lPlus - lMinus) / (2 * gradEps)
	}
	return grad
}

// lowerBounds and upperBounds keep the trainable vector inside the
// ranges mastery.ValidateParams accepts.
var (
	lowerBounds = [nTrainable]float64{0, 0.001, 0.001, 0.001}
	upperBounds = [nTrainable]float64{0.95, 0.5, 0.5, 0.99}
)

// clampVector constrains each trainable value to its bounds.
func clampVector(w [nTrainable]float64) [nTrainable]float64 {
	for i := 0; i < nTrainable; i++ {
		if w[i] < lowerBounds[i] {
			w[i] = lowerBounds[i]
		}
		if w[i] > upperBounds[i] {
			w[i] = upperBounds[i]
		}
	}
	return w
}
