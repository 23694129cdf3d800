package model

import "errors"

// Error taxonomy for the scoring core. Callers classify failures with
// errors.Is; every wrap goes through fmt.Errorf("...: %w", Err...).
var (
	// ErrDataInsufficiency: not enough labeled examples, or only one
	// class present. Training aborts and no partial model is saved.
	ErrDataInsufficiency = errors.New("insufficient training data")

	// ErrShapeMismatch: a feature vector's dimension disagrees with the
	// model's expected input. Aborts that item only, not the batch.
	ErrShapeMismatch = errors.New("feature vector shape mismatch")

	// ErrMissingModel: predict/report invoked before any model was trained.
	ErrMissingModel = errors.New("no trained model found (run \"foodtrend train\" first)")

	// ErrUpstreamUnavailable: collection or storage collaborator failed.
	// The run aborts and no partial predictions are persisted.
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")
)
