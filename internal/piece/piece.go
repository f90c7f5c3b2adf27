package piece

import (
	"fmt"

	"github.com/dshills/piecetable/internal/buffer"
)

// Piece is an immutable descriptor of Len elements of one buffer, starting
// at offset Start. It refers to the buffer by ID only.
type Piece struct {
	Buffer buffer.ID
	Start  int
	Len    int
}

// End returns the buffer offset one past the last element.
func (p Piece) End() int {
	return p.Start + p.Len
}

// Split cuts the piece k elements in. Both halves reference the same buffer.
// k must satisfy 0 < k < p.Len.
func (p Piece) Split(k int) (Piece, Piece) {
	return Piece{Buffer: p.Buffer, Start: p.Start, Len: k},
		Piece{Buffer: p.Buffer, Start: p.Start + k, Len: p.Len - k}
}

// Adjoins reports whether q continues p in the same buffer, so the two can
// be replaced by a single piece.
func (p Piece) Adjoins(q Piece) bool {
	return p.Buffer == q.Buffer && p.End() == q.Start
}

// Join returns the piece covering p followed by q. Only valid when
// p.Adjoins(q).
func (p Piece) Join(q Piece) Piece {
	return Piece{Buffer: p.Buffer, Start: p.Start, Len: p.Len + q.Len}
}

// String returns a compact form such as "added[4:7]".
func (p Piece) String() string {
	return fmt.Sprintf("%s[%d:%d]", p.Buffer, p.Start, p.End())
}
