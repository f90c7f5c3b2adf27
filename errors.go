package piecetable

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable/internal/piece"
)

// Errors returned by table operations.
var (
	// ErrOutOfRange indicates an index outside the bounds an operation
	// accepts. Insert accepts [0, Len()]; Get and Remove accept [0, Len()).
	ErrOutOfRange = piece.ErrOutOfRange

	// ErrModified indicates the table changed while an iterator was in use.
	ErrModified = errors.New("table modified during iteration")

	// ErrInvariant indicates Validate found a structural inconsistency.
	ErrInvariant = piece.ErrInvariant
)

func outOfRange(op string, index, length int) error {
	return errors.Wrapf(ErrOutOfRange, "%s: index %d, length %d", op, index, length)
}
