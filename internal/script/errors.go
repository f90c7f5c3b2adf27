package script

import "github.com/cockroachdb/errors"

// Errors returned by script execution.
var (
	// ErrStateClosed indicates the state was used after Close.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrInterrupted indicates the run was stopped by its context or
	// timeout.
	ErrInterrupted = errors.New("script interrupted")
)
