// Package mastery implements the adaptive skill-mastery engine behind a
// mental-abacus practice platform.
//
// mastery provides pure functions for Bayesian Knowledge Tracing updates,
// a four-dimension readiness gate, time-bounded progression deferrals, a
// session-mode planner, and anomaly detection over a learner's skill set.
// Durable storage lives in mastery/store, the stateful facade in
// mastery/engine, and parameter fitting in mastery/calibrate.
//
// Basic usage:
//
//	u, err := mastery.NewUpdater(mastery.Params{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	state := u.NewState("complement-add-9")
//	state, err = u.ApplyAttempt(state, attempt)
//	r := mastery.Assess(state, mastery.DefaultThresholds)
package mastery
