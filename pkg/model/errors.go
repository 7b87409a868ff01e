// pkg/model/errors.go
package model

import "errors"

// Pipeline error taxonomy. Every stage fails fast: the first stage error
// aborts the run, there is no retry at any level. Callers wrap these with
// fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrDataUnavailable indicates the named dataset could not be located
	// or fetched from its source
	ErrDataUnavailable = errors.New("dataset unavailable")

	// ErrUnrecognizedCategory indicates the outcome recode rule received a
	// category value it has no mapping for
	ErrUnrecognizedCategory = errors.New("unrecognized outcome category")

	// ErrInsufficientPredictors indicates an incomplete variable has no
	// usable predictor columns for imputation
	ErrInsufficientPredictors = errors.New("insufficient predictors for imputation")

	// ErrConvergenceFailure indicates a regression fit did not converge
	ErrConvergenceFailure = errors.New("model fit did not converge")
)
