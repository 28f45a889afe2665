// Package calibrate fits Bayesian Knowledge Tracing parameters to
// historical attempt logs.
//
// [Calibrator.Fit] trains the prior/slip/guess/transit values using
// mini-batch gradient descent with the [Adam] optimizer and
// [CosineAnnealing] learning rate schedule. Gradients are computed via
// numerical central differences on binary cross-entropy loss between
// the predicted probability of a correct answer and the observed
// outcome.
//
// # Usage
//
//	c := calibrate.NewCalibrator(calibrate.Config{})
//	params, err := c.Fit(ctx, attempts)
//
// # Data Requirements
//
// Fitting requires enough first attempts across skills (at least
// MiniBatchSize, default 256). Retries carry no posterior evidence and
// are dropped before training.
package calibrate
