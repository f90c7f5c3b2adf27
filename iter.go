package piecetable

import (
	"iter"

	"github.com/dshills/piecetable/internal/piece"
)

// Iterator yields the elements of a Table in logical order.
//
// An iterator reflects the table at the moment it was created. Mutating
// the table while the iterator is still being consumed ends the iteration:
// Next returns false and Err returns ErrModified.
type Iterator[T any] struct {
	table  *Table[T]
	pieces *piece.Iterator
	cur    piece.Piece
	pos    int // Offset within cur of the next element
	index  int
	value  T
	err    error
}

// Iter returns a new iterator positioned before the first element.
func (t *Table[T]) Iter() *Iterator[T] {
	return &Iterator[T]{
		table:  t,
		pieces: t.seq.Iter(),
		index:  -1,
	}
}

// Next advances to the next element.
// Returns true if there is an element, false when iteration is complete
// or the table was modified.
func (it *Iterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	for it.pos >= it.cur.Len {
		if !it.pieces.Next() {
			if it.pieces.Stale() {
				it.err = ErrModified
			}
			return false
		}
		it.cur = it.pieces.Piece()
		it.pos = 0
	}
	if it.pieces.Stale() {
		it.err = ErrModified
		return false
	}

	it.value = it.table.pool.At(it.cur.Buffer, it.cur.Start+it.pos)
	it.pos++
	it.index++
	return true
}

// Value returns the current element.
func (it *Iterator[T]) Value() T {
	return it.value
}

// Index returns the logical index of the current element.
func (it *Iterator[T]) Index() int {
	return it.index
}

// Err returns ErrModified if iteration stopped because the table changed.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All returns an iterator over index/element pairs in logical order.
// It panics with ErrModified if the table is mutated during the loop.
func (t *Table[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		it := t.seq.Iter()
		i := 0
		for it.Next() {
			p := it.Piece()
			cont := t.pool.Range(p.Buffer, p.Start, p.Len, func(v T) bool {
				if !yield(i, v) {
					return false
				}
				if it.Stale() {
					panic(ErrModified)
				}
				i++
				return true
			})
			if !cont {
				return
			}
		}
		if it.Stale() {
			panic(ErrModified)
		}
	}
}

// Values returns an iterator over the elements in logical order.
// It panics with ErrModified if the table is mutated during the loop.
func (t *Table[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range t.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Slice returns a copy of the content.
func (t *Table[T]) Slice() []T {
	out := make([]T, 0, t.Len())
	for v := range t.Values() {
		out = append(out, v)
	}
	return out
}
