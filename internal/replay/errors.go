package replay

import "github.com/cockroachdb/errors"

// Errors returned by script parsing and execution.
var (
	// ErrUnknownOp indicates an op name the runner does not implement.
	ErrUnknownOp = errors.New("unknown op")

	// ErrInvalidOp indicates an op with missing or malformed arguments.
	ErrInvalidOp = errors.New("invalid op")

	// ErrMismatch indicates the table diverged from the reference slice.
	ErrMismatch = errors.New("table diverged from reference")

	// ErrExpectation indicates the final text differs from the script's
	// expect field.
	ErrExpectation = errors.New("unexpected final text")
)
