package piece

import (
	"github.com/dshills/piecetable/internal/buffer"
)

// Location is a position inside the sequence expressed as the ordinal of a
// piece and an offset into it. The end of the sequence is reported as
// Location{Piece: Count(), Offset: 0}.
type Location struct {
	Piece  int
	Offset int
}

// Config sets the tree shape of a Sequence. Zero values select defaults;
// values below 4 are raised to 4.
type Config struct {
	LeafCapacity int
	Fanout       int
}

// Sequence is the ordered list of pieces making up a piece table.
// It is not safe for concurrent use.
type Sequence struct {
	root    *node
	shape   shape
	version uint64
}

// NewSequence creates a sequence holding the given pieces in order.
// Empty pieces are skipped.
func NewSequence(cfg Config, pieces ...Piece) *Sequence {
	sh := shape{leafCap: cfg.LeafCapacity, fanout: cfg.Fanout}
	if sh.leafCap == 0 {
		sh.leafCap = DefaultLeafCapacity
	}
	if sh.fanout == 0 {
		sh.fanout = DefaultFanout
	}
	sh.leafCap = max(sh.leafCap, minCapacity)
	sh.fanout = max(sh.fanout, minCapacity)

	s := &Sequence{root: newLeaf(nil), shape: sh}
	for _, p := range pieces {
		if p.Len > 0 {
			s.insertAt(s.Count(), p)
		}
	}
	s.version = 0
	return s
}

// Len returns the number of logical elements covered by all pieces.
func (s *Sequence) Len() int {
	return s.root.summary.elems
}

// Count returns the number of pieces.
func (s *Sequence) Count() int {
	return s.root.summary.pieces
}

// Height returns the number of levels above the leaves.
func (s *Sequence) Height() int {
	return s.root.height()
}

// Version returns a stamp that changes on every structural mutation.
func (s *Sequence) Version() uint64 {
	return s.version
}

// PieceAt returns the k-th piece. It panics if k is not in [0, Count()).
func (s *Sequence) PieceAt(k int) Piece {
	if k < 0 || k >= s.Count() {
		panic(outOfRange(k, s.Count()))
	}
	return s.root.get(k)
}

// Locate maps a logical position to a piece ordinal and an offset inside
// that piece. pos may equal Len(), which yields the end location.
func (s *Sequence) Locate(pos int) (Location, error) {
	if pos < 0 || pos > s.Len() {
		return Location{}, outOfRange(pos, s.Len())
	}
	if pos == s.Len() {
		return Location{Piece: s.Count()}, nil
	}

	n := s.root
	ordinal := 0
	for !n.leaf {
		i := 0
		for ; i < len(n.childSummaries)-1; i++ {
			cs := n.childSummaries[i]
			if pos < cs.elems {
				break
			}
			pos -= cs.elems
			ordinal += cs.pieces
		}
		n = n.children[i]
	}
	for _, p := range n.pieces {
		if pos < p.Len {
			break
		}
		pos -= p.Len
		ordinal++
	}
	return Location{Piece: ordinal, Offset: pos}, nil
}

// SplitAt ensures a piece boundary exists at pos and returns the ordinal of
// the piece that starts there (Count() when pos is the end). A position
// already on a boundary leaves the sequence untouched.
func (s *Sequence) SplitAt(pos int) (int, error) {
	loc, err := s.Locate(pos)
	if err != nil {
		return 0, err
	}
	if loc.Offset == 0 {
		return loc.Piece, nil
	}

	left, right := s.root.get(loc.Piece).Split(loc.Offset)
	s.root.set(loc.Piece, left)
	s.insertAt(loc.Piece+1, right)
	return loc.Piece + 1, nil
}

// InsertPiece places p so its first element lands at logical position pos
// and returns the ordinal p was stored at.
func (s *Sequence) InsertPiece(pos int, p Piece) (int, error) {
	if p.Len <= 0 {
		return 0, ErrEmptyPiece
	}
	if pos < 0 || pos > s.Len() {
		return 0, outOfRange(pos, s.Len())
	}
	k, err := s.SplitAt(pos)
	if err != nil {
		return 0, err
	}
	s.insertAt(k, p)
	return k, nil
}

// RemoveRange removes the elements in [start, end) and returns the ordinal
// of the piece that now follows the removed run.
func (s *Sequence) RemoveRange(start, end int) (int, error) {
	if start < 0 || start > s.Len() {
		return 0, outOfRange(start, s.Len())
	}
	if end < start || end > s.Len() {
		return 0, outOfRange(end, s.Len())
	}
	if start == end {
		loc, _ := s.Locate(start)
		return loc.Piece, nil
	}

	first, err := s.SplitAt(start)
	if err != nil {
		return 0, err
	}
	last, err := s.SplitAt(end)
	if err != nil {
		return 0, err
	}
	for i := first; i < last; i++ {
		s.deleteAt(first)
	}
	return first, nil
}

// MergeAdjacent fuses pieces k and k+1 when the second continues the first
// in the same buffer. It reports whether a merge happened.
func (s *Sequence) MergeAdjacent(k int) bool {
	if k < 0 || k+1 >= s.Count() {
		return false
	}
	a, b := s.root.get(k), s.root.get(k+1)
	if !a.Adjoins(b) {
		return false
	}
	s.root.set(k, a.Join(b))
	s.deleteAt(k + 1)
	return true
}

// Coalesce merges every adjoining pair in one left-to-right pass and
// returns the number of merges performed.
func (s *Sequence) Coalesce() int {
	merged := 0
	for k := 0; k < s.Count()-1; {
		if s.MergeAdjacent(k) {
			merged++
			continue
		}
		k++
	}
	return merged
}

// Pieces returns a copy of all pieces in order.
func (s *Sequence) Pieces() []Piece {
	out := make([]Piece, 0, s.Count())
	it := s.Iter()
	for it.Next() {
		out = append(out, it.Piece())
	}
	return out
}

func (s *Sequence) insertAt(k int, p Piece) {
	s.version++
	if right := s.root.insertAt(k, p, s.shape); right != nil {
		s.root = newInternal([]*node{s.root, right})
	}
}

func (s *Sequence) deleteAt(k int) Piece {
	s.version++
	p := s.root.deleteAt(k, s.shape)
	for !s.root.leaf && len(s.root.children) == 1 {
		s.root = s.root.children[0]
	}
	return p
}

// Validate checks the partition and tree invariants. bufLen reports the
// current size of each buffer.
func (s *Sequence) Validate(bufLen func(buffer.ID) int) error {
	if !s.root.leaf && len(s.root.children) < 2 {
		return invariantf("internal root has %d children", len(s.root.children))
	}
	leafDepth := -1
	var walk func(n *node, depth int, isRoot bool) (summary, error)
	walk = func(n *node, depth int, isRoot bool) (summary, error) {
		if !isRoot {
			lo, hi := s.shape.minChildren(), s.shape.fanout
			if n.leaf {
				lo, hi = s.shape.minLeaf(), s.shape.leafCap
			}
			if n.size() < lo || n.size() > hi {
				return summary{}, invariantf("node at depth %d has %d entries, want [%d, %d]", depth, n.size(), lo, hi)
			}
		}

		var got summary
		if n.leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return summary{}, invariantf("leaf at depth %d, expected %d", depth, leafDepth)
			}
			for _, p := range n.pieces {
				if p.Len <= 0 {
					return summary{}, invariantf("piece %s has length %d", p, p.Len)
				}
				if p.Start < 0 || p.End() > bufLen(p.Buffer) {
					return summary{}, invariantf("piece %s exceeds %s buffer of size %d", p, p.Buffer, bufLen(p.Buffer))
				}
				got = got.add(pieceSummary(p))
			}
		} else {
			if len(n.childSummaries) != len(n.children) {
				return summary{}, invariantf("node has %d children but %d summaries", len(n.children), len(n.childSummaries))
			}
			for i, child := range n.children {
				cs, err := walk(child, depth+1, false)
				if err != nil {
					return summary{}, err
				}
				if cs != n.childSummaries[i] {
					return summary{}, invariantf("cached child summary %+v, recomputed %+v", n.childSummaries[i], cs)
				}
				got = got.add(cs)
			}
		}
		if got != n.summary {
			return summary{}, invariantf("cached summary %+v, recomputed %+v", n.summary, got)
		}
		return got, nil
	}
	_, err := walk(s.root, 0, true)
	return err
}
