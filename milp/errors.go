package milp

import (
	"context"
	"errors"
)

var (
	ErrInfeasible = errors.New("model is infeasible")
	ErrUnbounded  = errors.New("model is unbounded")
	ErrNodeLimit  = errors.New("node limit reached")
	ErrTimeLimit  = errors.New("time limit reached")
	// ErrStalled means the simplex method ran out of pivots before
	// reaching an optimal basis.
	ErrStalled = errors.New("simplex stalled")
)

// BackendError is a failure of the solver itself rather than a property of
// the model.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return e.Backend + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt, possibly on another backend,
// could succeed.
func (e *BackendError) Retryable() bool {
	return !errors.Is(e.Err, ErrUnbounded) &&
		!errors.Is(e.Err, context.Canceled) &&
		!errors.Is(e.Err, context.DeadlineExceeded)
}
