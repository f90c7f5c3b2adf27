package piecetable

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable/internal/buffer"
	"github.com/dshills/piecetable/internal/piece"
	"github.com/dshills/piecetable/logging"
)

// Table is a piece table over elements of type T.
//
// The zero value is not usable; create tables with New. A Table is not
// safe for concurrent use: callers sharing one across goroutines must
// provide their own locking.
type Table[T any] struct {
	pool   *buffer.Pool[T]
	seq    *piece.Sequence
	merge  MergePolicy
	logger *logging.Logger
}

// Stats describes the shape and storage of a table.
type Stats struct {
	Len         int // Logical elements
	Pieces      int // Pieces in the index
	TreeHeight  int // Index levels above the leaves
	OriginalLen int // Elements in the original buffer
	AddedLen    int // Elements ever appended to the added buffer
	AddedChunks int // Chunks backing the added buffer
}

// New creates a table whose content is a copy of initial.
func New[T any](initial []T, opts ...Option) *Table[T] {
	o := options{
		leafCapacity: DefaultLeafCapacity,
		fanout:       DefaultFanout,
		chunkSize:    DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}

	t := &Table[T]{
		pool:   buffer.NewPool(initial, o.chunkSize),
		merge:  o.merge,
		logger: o.logger.WithComponent("piecetable"),
	}
	t.seq = piece.NewSequence(
		piece.Config{LeafCapacity: o.leafCapacity, Fanout: o.fanout},
		piece.Piece{Buffer: buffer.Original, Start: 0, Len: len(initial)},
	)

	t.logger.Debug("table created: len=%d leaf=%d fanout=%d merge=%s",
		len(initial), o.leafCapacity, o.fanout, o.merge)
	return t
}

// Len returns the number of elements.
func (t *Table[T]) Len() int {
	return t.seq.Len()
}

// Insert places v at index i, shifting later elements right.
// i must be in [0, Len()].
func (t *Table[T]) Insert(i int, v T) error {
	if i < 0 || i > t.Len() {
		return outOfRange("insert", i, t.Len())
	}
	loc := t.pool.Append(v)
	return t.insertPiece(i, piece.Piece{Buffer: loc.Buffer, Start: loc.Offset, Len: 1})
}

// InsertSlice places vs at index i, in order, as a single piece.
// i must be in [0, Len()]. An empty vs leaves the table unchanged.
func (t *Table[T]) InsertSlice(i int, vs []T) error {
	if i < 0 || i > t.Len() {
		return outOfRange("insert", i, t.Len())
	}
	if len(vs) == 0 {
		return nil
	}
	loc := t.pool.AppendSlice(vs)
	return t.insertPiece(i, piece.Piece{Buffer: loc.Buffer, Start: loc.Offset, Len: len(vs)})
}

func (t *Table[T]) insertPiece(i int, p piece.Piece) error {
	k, err := t.seq.InsertPiece(i, p)
	if err != nil {
		return err
	}
	if t.merge == MergeEager {
		// The right neighbor always predates p in the added buffer, so
		// only the left side can continue into it.
		t.seq.MergeAdjacent(k - 1)
	}
	return nil
}

// Remove deletes the element at index i and returns it.
// i must be in [0, Len()).
func (t *Table[T]) Remove(i int) (T, error) {
	if i < 0 || i >= t.Len() {
		var zero T
		return zero, outOfRange("remove", i, t.Len())
	}
	v, err := t.Get(i)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "remove")
	}
	if err := t.removeRange(i, i+1); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// RemoveRange deletes the elements in [start, end).
// It requires 0 <= start <= end <= Len().
func (t *Table[T]) RemoveRange(start, end int) error {
	if start < 0 || start > t.Len() {
		return outOfRange("remove", start, t.Len())
	}
	if end < start || end > t.Len() {
		return outOfRange("remove", end, t.Len())
	}
	if start == end {
		return nil
	}
	return t.removeRange(start, end)
}

func (t *Table[T]) removeRange(start, end int) error {
	k, err := t.seq.RemoveRange(start, end)
	if err != nil {
		return err
	}
	if t.merge == MergeEager {
		t.seq.MergeAdjacent(k - 1)
	}
	return nil
}

// Get returns the element at index i.
// i must be in [0, Len()).
func (t *Table[T]) Get(i int) (T, error) {
	if i < 0 || i >= t.Len() {
		var zero T
		return zero, outOfRange("get", i, t.Len())
	}
	loc, err := t.seq.Locate(i)
	if err != nil {
		var zero T
		return zero, err
	}
	p := t.seq.PieceAt(loc.Piece)
	return t.pool.At(p.Buffer, p.Start+loc.Offset), nil
}

// PieceCount returns the number of pieces currently describing the content.
func (t *Table[T]) PieceCount() int {
	return t.seq.Count()
}

// Coalesce merges every pair of adjoining pieces and returns the number of
// merges performed. Under MergeEager it normally finds nothing to do.
func (t *Table[T]) Coalesce() int {
	before := t.seq.Count()
	merged := t.seq.Coalesce()
	t.logger.Debug("coalesce: pieces %d -> %d", before, t.seq.Count())
	return merged
}

// Validate checks every structural invariant of the table and returns an
// error wrapping ErrInvariant on the first violation.
func (t *Table[T]) Validate() error {
	if err := t.seq.Validate(t.pool.Len); err != nil {
		t.logger.Error("validation failed: %v", err)
		return err
	}
	return nil
}

// Stats reports the current shape of the table.
func (t *Table[T]) Stats() Stats {
	ps := t.pool.Stats()
	return Stats{
		Len:         t.seq.Len(),
		Pieces:      t.seq.Count(),
		TreeHeight:  t.seq.Height(),
		OriginalLen: ps.OriginalLen,
		AddedLen:    ps.AddedLen,
		AddedChunks: ps.AddedChunks,
	}
}
