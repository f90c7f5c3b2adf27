// Package piecetable provides a generic piece table: an ordered sequence
// of elements that supports insertion and removal at any index without
// copying the sequence on every edit.
//
// # Structure
//
// A Table stores elements in two append-only buffers. The original buffer
// is a copy of the content passed to New and is never written again. The
// added buffer receives every inserted element. The logical content is
// described by an ordered list of pieces, each naming a contiguous run of
// one buffer. Edits only rearrange pieces:
//
//	content  "abcde"            original: a b c d e
//	Insert(2, 'X')              added:    X
//	pieces   original[0:2] added[0:1] original[2:5]   => "abXcde"
//	Remove(3)                   (drops 'c')
//	pieces   original[0:2] added[0:1] original[3:5]   => "abXde"
//
// Pieces live in a B+ tree that counts elements and pieces per subtree, so
// locating an index, splitting a piece or removing one costs O(log p) in
// the number of pieces p. Adjoining pieces are merged after each edit,
// which keeps p close to the number of distinct edit sites.
//
// # Basic Usage
//
//	t := piecetable.New([]rune("hello"))
//	_ = t.Insert(5, '!')        // "hello!"
//	r, _ := t.Remove(0)         // r == 'h', "ello!"
//	v, _ := t.Get(0)            // 'e'
//	for i, r := range t.All() {
//	    fmt.Println(i, string(r))
//	}
//
// # Error Handling
//
// Index arguments are checked before anything is mutated. A failed
// operation leaves the table exactly as it was and returns an error that
// matches ErrOutOfRange under errors.Is.
//
// # Thread Safety
//
// A Table is not safe for concurrent use. Mutating a table while one of
// its iterators is being consumed stops the iterator with ErrModified.
//
// # Memory
//
// Buffer storage is never reclaimed while the table is alive, even after
// the pieces that referenced it are removed. Stats reports how much
// storage is held.
package piecetable
