package calibrate

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/soroban-labs/mastery"
)

var (
	// ErrEmptyLogs is returned when no attempts are provided.
	ErrEmptyLogs = errors.New("calibrate: no attempts provided")

	// ErrInsufficientData is returned when scored attempts are fewer than MiniBatchSize.
	ErrInsufficientData = errors.New("calibrate: insufficient attempts for calibration")
)

// Config configures the fitting process.
// Zero values are replaced with sensible defaults.
type Config struct {
	Epochs        int     `json:"epochs"`          // default 5
	MiniBatchSize int     `json:"mini_batch_size"` // default 256
	LearningRate  float64 `json:"learning_rate"`   // default 0.02
	MaxSeqLen     int     `json:"max_seq_len"`     // default 64

	// Base supplies the untrained parameters (confidence scale, window
	// capacity) and the starting point. Zero → mastery.DefaultParams.
	Base mastery.Params `json:"base"`
}

// Calibrator fits BKT parameters from attempt logs using mini-batch
// gradient descent with Adam and cosine annealing learning rate.
type Calibrator struct {
	epochs        int
	miniBatchSize int
	learningRate  float64
	maxSeqLen     int
	base          mastery.Params
}

// NewCalibrator creates a Calibrator with the given config.
// Zero-valued fields receive defaults: Epochs=5, MiniBatchSize=256,
// LearningRate=0.02, MaxSeqLen=64.
func NewCalibrator(cfg Config) *Calibrator {
	c := &Calibrator{
		epochs:        cfg.Epochs,
		miniBatchSize: cfg.MiniBatchSize,
		learningRate:  cfg.LearningRate,
		maxSeqLen:     cfg.MaxSeqLen,
		base:          cfg.Base,
	}
	if c.epochs == 0 {
		c.epochs = 5
	}
	if c.miniBatchSize == 0 {
		c.miniBatchSize = 256
	}
	if c.learningRate == 0 {
		c.learningRate = 0.02
	}
	if c.maxSeqLen == 0 {
		c.maxSeqLen = 64
	}
	if c.base == (mastery.Params{}) {
		c.base = mastery.DefaultParams
	}
	return c
}

// Fit optimizes prior/slip/guess/transit from attempt logs.
// It starts from the base parameters and uses mini-batch gradient
// descent (numerical central differences) with Adam and cosine
// annealing learning rate.
//
// Returns ErrEmptyLogs if attempts is empty, or ErrInsufficientData
// (along with the base parameters) if scored attempts are fewer than
// MiniBatchSize. The context can cancel a long-running fit.
func (c *Calibrator) Fit(ctx context.Context, attempts []mastery.Attempt) (mastery.Params, error) {
	if len(attempts) == 0 {
		return mastery.Params{}, ErrEmptyLogs
	}

	data := formatAttempts(attempts)

	// Truncate each skill's history to maxSeqLen.
	for skillID, group := range data {
		if len(group) > c.maxSeqLen {
			data[skillID] = group[:c.maxSeqLen]
		}
	}

	numScored := countScoredAttempts(data)
	if numScored < c.miniBatchSize {
		return c.base, ErrInsufficientData
	}

	w := vectorOf(c.base)
	tMax := int(math.Ceil(float64(numScored)/float64(c.miniBatchSize))) * c.epochs
	adam := NewAdam(c.learningRate)
	ca := NewCosineAnnealing(c.learningRate, tMax)
	rng := rand.New(rand.NewSource(42))

	// Sorted skill IDs for deterministic shuffle.
	skillIDs := make([]string, 0, len(data))
	for id := range data {
		skillIDs = append(skillIDs, id)
	}
	sort.Strings(skillIDs)

	bestW := w
	bestLoss := math.Inf(1)

	for epoch := 0; epoch < c.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return applyVector(c.base, bestW), err
		}

		rng.Shuffle(len(skillIDs), func(i, j int) {
			skillIDs[i], skillIDs[j] = skillIDs[j], skillIDs[i]
		})

		batchData := make(map[string][]mastery.Attempt)
		scored := 0

		for _, skillID := range skillIDs {
			group := data[skillID]
			batchData[skillID] = group
			scored += len(group)

			if scored >= c.miniBatchSize {
				grad := numericalGradient(c.base, w, batchData)
				adam.SetLR(ca.LR())
				w = clampVector(adam.Update(w, grad))
				ca.Step()

				batchData = make(map[string][]mastery.Attempt)
				scored = 0
			}
		}

		// Handle the remaining attempts at end of epoch.
		if scored > 0 {
			grad := numericalGradient(c.base, w, batchData)
			adam.SetLR(ca.LR())
			w = clampVector(adam.Update(w, grad))
			ca.Step()
		}

		// Track the best vector by epoch loss.
		epochLoss := computeBatchLoss(c.base, w, data)
		if epochLoss < bestLoss {
			bestLoss = epochLoss
			bestW = w
		}
	}

	return applyVector(c.base, bestW), nil
}

// Loss computes the average BCE loss of the given parameters over the
// attempt logs. This is a convenience wrapper that preprocesses the
// attempts.
func (c *Calibrator) Loss(p mastery.Params, attempts []mastery.Attempt) float64 {
	data := formatAttempts(attempts)
	return computeBatchLoss(p, vectorOf(p), data)
}
