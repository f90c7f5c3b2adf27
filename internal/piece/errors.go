package piece

import "github.com/cockroachdb/errors"

// Errors returned by sequence operations.
var (
	// ErrOutOfRange indicates a logical position outside the sequence.
	ErrOutOfRange = errors.New("index out of range")

	// ErrEmptyPiece indicates an attempt to store a piece with no elements.
	ErrEmptyPiece = errors.New("piece has no elements")

	// ErrInvariant marks a structural check failure reported by Validate.
	ErrInvariant = errors.New("piece sequence invariant violated")
)

func outOfRange(pos, length int) error {
	return errors.Wrapf(ErrOutOfRange, "position %d, length %d", pos, length)
}

func invariantf(format string, args ...any) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvariant)
}
