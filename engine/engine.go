// Package engine wires the mastery library to persistent storage.
//
// An [Engine] owns the skill catalog, the belief updater and the gate
// thresholds, and routes every read and write through a
// [store.StateStore] and a [store.DeferralStore]. It is the intended
// entry point for services; the root package stays pure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soroban-labs/mastery"
	"github.com/soroban-labs/mastery/store"
)

// Options configures an Engine. Catalog, States and Deferrals are
// required; everything else has defaults.
type Options struct {
	Catalog   *mastery.Catalog
	States    store.StateStore
	Deferrals store.DeferralStore

	Params     mastery.Params        // zero value: mastery.DefaultParams
	Thresholds mastery.Thresholds    // zero value: mastery.DefaultThresholds
	Planner    mastery.PlannerConfig // zero value: mastery.DefaultPlannerConfig
	Anomaly    mastery.AnomalyConfig // zero value: mastery.DefaultAnomalyConfig

	// DeferralDuration is how long a parent deferral holds. Zero means
	// mastery.DefaultDeferralDuration.
	DeferralDuration time.Duration

	// ScanConcurrency bounds parallel players in ScanAnomalies.
	// Zero means 8.
	ScanConcurrency int

	Logger *zap.Logger      // nil: zap.NewNop()
	Now    func() time.Time // nil: time.Now
}

// Engine coordinates belief updates, readiness checks, deferrals,
// session planning and anomaly detection for stored players.
type Engine struct {
	catalog    *mastery.Catalog
	updater    *mastery.Updater
	thresholds mastery.Thresholds
	planner    mastery.PlannerConfig
	anomaly    mastery.AnomalyConfig

	deferralDuration time.Duration
	scanConcurrency  int

	states    store.StateStore
	deferrals store.DeferralStore

	log *zap.Logger
	now func() time.Time
}

// New creates an Engine from the given options.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine: catalog required")
	}
	if opts.States == nil {
		return nil, errors.New("engine: state store required")
	}
	if opts.Deferrals == nil {
		return nil, errors.New("engine: deferral store required")
	}

	u, err := mastery.NewUpdater(opts.Params)
	if err != nil {
		return nil, err
	}

	thresholds := opts.Thresholds
	if thresholds == (mastery.Thresholds{}) {
		thresholds = mastery.DefaultThresholds
	}
	if err := mastery.ValidateThresholds(thresholds); err != nil {
		return nil, err
	}

	e := &Engine{
		catalog:          opts.Catalog,
		updater:          u,
		thresholds:       thresholds,
		planner:          opts.Planner,
		anomaly:          opts.Anomaly,
		deferralDuration: opts.DeferralDuration,
		scanConcurrency:  opts.ScanConcurrency,
		states:           opts.States,
		deferrals:        opts.Deferrals,
		log:              opts.Logger,
		now:              opts.Now,
	}
	if e.scanConcurrency <= 0 {
		e.scanConcurrency = 8
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// RecordAttempt validates the attempt against the catalog, applies it
// to the player's stored belief state and persists the result. A first
// attempt at a skill creates the state from the prior.
func (e *Engine) RecordAttempt(ctx context.Context, playerID string, attempt mastery.Attempt) (mastery.BeliefState, error) {
	if _, err := e.catalog.Lookup(attempt.SkillID); err != nil {
		return mastery.BeliefState{}, err
	}

	next, err := e.states.Update(ctx, playerID, attempt.SkillID,
		func(state mastery.BeliefState, ok bool) (mastery.BeliefState, error) {
			if !ok {
				state = e.updater.NewState(attempt.SkillID)
			}
			return e.updater.ApplyAttempt(state, attempt)
		})
	if err != nil {
		return mastery.BeliefState{}, err
	}

	e.log.Debug("attempt recorded",
		zap.String("player_id", playerID),
		zap.String("skill_id", attempt.SkillID),
		zap.Bool("correct", attempt.Correct),
		zap.Bool("retry", attempt.Retry),
		zap.Float64("p_known", next.PKnown))
	return next, nil
}

// RecordAttempts applies a batch in input order, stopping at the first
// failure. Earlier attempts stay persisted; the error reports how many
// were applied.
func (e *Engine) RecordAttempts(ctx context.Context, playerID string, attempts []mastery.Attempt) error {
	for i, a := range attempts {
		if _, err := e.RecordAttempt(ctx, playerID, a); err != nil {
			return &BatchError{Applied: i, Err: err}
		}
	}
	return nil
}

// BatchError reports a batch that failed partway through.
type BatchError struct {
	Applied int // attempts persisted before the failure
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("engine: batch failed after %d attempts: %v", e.Applied, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// State returns the stored belief state for one skill.
func (e *Engine) State(ctx context.Context, playerID, skillID string) (mastery.BeliefState, error) {
	if _, err := e.catalog.Lookup(skillID); err != nil {
		return mastery.BeliefState{}, err
	}
	return e.states.Get(ctx, playerID, skillID)
}

// Assess runs the readiness gate for one skill. A skill with no stored
// state is assessed from the prior, so it reports not solid rather
// than an error.
func (e *Engine) Assess(ctx context.Context, playerID, skillID string) (mastery.Readiness, error) {
	if _, err := e.catalog.Lookup(skillID); err != nil {
		return mastery.Readiness{}, err
	}

	state, err := e.states.Get(ctx, playerID, skillID)
	if errors.Is(err, store.ErrNotFound) {
		state = e.updater.NewState(skillID)
	} else if err != nil {
		return mastery.Readiness{}, err
	}
	return mastery.Assess(state, e.thresholds), nil
}

// AssessAll runs the readiness gate over every skill the player has
// practiced.
func (e *Engine) AssessAll(ctx context.Context, playerID string) (map[string]mastery.Readiness, error) {
	states, err := e.states.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return mastery.AssessAll(states, e.thresholds), nil
}

// Defer records a parent deferral for the skill, replacing any
// existing one. The expiry window restarts from the engine clock.
func (e *Engine) Defer(ctx context.Context, playerID, skillID string) (mastery.Deferral, error) {
	if _, err := e.catalog.Lookup(skillID); err != nil {
		return mastery.Deferral{}, err
	}

	d, err := mastery.NewDeferral(playerID, skillID, e.now(), e.deferralDuration)
	if err != nil {
		return mastery.Deferral{}, err
	}
	if err := e.deferrals.Upsert(ctx, d); err != nil {
		return mastery.Deferral{}, err
	}

	e.log.Info("skill deferred",
		zap.String("player_id", playerID),
		zap.String("skill_id", skillID),
		zap.Time("expires_at", d.ExpiresAt))
	return d, nil
}

// ClearDeferral removes a deferral before it expires. Clearing a
// missing deferral is a no-op.
func (e *Engine) ClearDeferral(ctx context.Context, playerID, skillID string) error {
	return e.deferrals.Delete(ctx, playerID, skillID)
}

// DeferralActive reports whether an unexpired deferral exists for the
// skill at the engine clock.
func (e *Engine) DeferralActive(ctx context.Context, playerID, skillID string) (bool, error) {
	d, err := e.deferrals.Get(ctx, playerID, skillID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.ActiveAt(e.now()), nil
}

// PlanSession builds the next-session plan from the player's stored
// states and deferrals.
func (e *Engine) PlanSession(ctx context.Context, playerID string) (mastery.Plan, error) {
	states, err := e.states.Player(ctx, playerID)
	if err != nil {
		return mastery.Plan{}, err
	}
	deferrals, err := e.deferrals.Player(ctx, playerID)
	if err != nil {
		return mastery.Plan{}, err
	}

	plan := mastery.PlanSession(states, deferrals, e.thresholds, e.planner, e.now())
	e.log.Debug("session planned",
		zap.String("player_id", playerID),
		zap.Stringer("mode", plan.Mode),
		zap.Int("struggling", len(plan.Struggling)),
		zap.Int("ready", len(plan.Ready)))
	return plan, nil
}

// Anomalies runs anomaly detection for one player. Skip events are
// supplied by the caller; the engine does not ingest skips itself.
func (e *Engine) Anomalies(ctx context.Context, playerID string, skips []mastery.SkipEvent) ([]mastery.Anomaly, error) {
	states, err := e.states.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return mastery.DetectAnomalies(states, skips, e.thresholds, e.anomaly, e.now()), nil
}

// ScanAnomalies runs anomaly detection across many players with
// bounded concurrency. Players with no anomalies are omitted from the
// result.
func (e *Engine) ScanAnomalies(ctx context.Context, skips map[string][]mastery.SkipEvent, playerIDs ...string) (map[string][]mastery.Anomaly, error) {
	var mu sync.Mutex
	out := make(map[string][]mastery.Anomaly)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.scanConcurrency)

	for _, playerID := range playerIDs {
		playerID := playerID
		g.Go(func() error {
			anomalies, err := e.Anomalies(ctx, playerID, skips[playerID])
			if err != nil {
				return err
			}
			if len(anomalies) == 0 {
				return nil
			}
			mu.Lock()
			out[playerID] = anomalies
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
