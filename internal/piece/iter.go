package piece

// iterFrame is a position in the tree traversal.
type iterFrame struct {
	node *node
	idx  int // Next child (internal) or piece (leaf) to visit
}

// Iterator walks the pieces of a Sequence in logical order.
// The sequence must not be mutated while an iterator is in use; Stale
// reports whether that happened.
type Iterator struct {
	seq     *Sequence
	version uint64
	stack   []iterFrame
	started bool
	piece   Piece
	offset  int
}

// Iter returns an iterator positioned before the first piece.
func (s *Sequence) Iter() *Iterator {
	return &Iterator{
		seq:     s,
		version: s.version,
		stack:   make([]iterFrame, 0, s.Height()+1),
	}
}

// Next advances to the next piece.
// Returns true if there is a piece, false if iteration is complete or the
// sequence changed since the iterator was created.
func (it *Iterator) Next() bool {
	if it.Stale() {
		it.stack = it.stack[:0]
		return false
	}
	if !it.started {
		it.started = true
		it.stack = append(it.stack, iterFrame{node: it.seq.root})
	} else {
		it.offset += it.piece.Len
	}

	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		n := frame.node

		if n.leaf {
			if frame.idx < len(n.pieces) {
				it.piece = n.pieces[frame.idx]
				frame.idx++
				return true
			}
		} else if frame.idx < len(n.children) {
			child := n.children[frame.idx]
			frame.idx++
			it.stack = append(it.stack, iterFrame{node: child})
			continue
		}

		// Done with this node
		it.stack = it.stack[:len(it.stack)-1]
	}
	it.piece = Piece{}
	return false
}

// Piece returns the current piece.
func (it *Iterator) Piece() Piece {
	return it.piece
}

// Offset returns the logical position of the first element of the current
// piece.
func (it *Iterator) Offset() int {
	return it.offset
}

// Stale reports whether the sequence was mutated after the iterator was
// created.
func (it *Iterator) Stale() bool {
	return it.version != it.seq.version
}
