// Package piece maintains the ordered partition of a piece table.
//
// A Piece names a contiguous run inside one buffer of a buffer.Pool. A
// Sequence keeps pieces in logical order inside a B+ tree whose internal
// nodes cache, per child, the number of elements and the number of pieces
// below it. Those counts turn the tree into an order-statistics index:
// finding the piece that holds logical position i, or the k-th piece, walks
// one root-to-leaf path, so every structural operation costs O(log p) where
// p is the number of pieces, independent of how many elements they cover.
//
// Structural edits follow the classic piece-table recipe:
//
//	SplitAt(i)          cut the piece containing i so a boundary exists at i
//	InsertPiece(i, p)   SplitAt(i), then place p at that boundary
//	RemoveRange(s, e)   SplitAt(s), SplitAt(e), drop everything in between
//	MergeAdjacent(k)    fuse pieces k and k+1 when they are contiguous
//
// None of these touch element storage. Zero-length pieces are never stored.
package piece
