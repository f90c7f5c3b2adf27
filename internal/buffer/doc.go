// Package buffer provides the append-only element storage behind a piece table.
//
// A Pool owns two buffers. The Original buffer is a private copy of the
// initial content and is never written again. The Added buffer grows by one
// element (or one run) per insertion and is stored as a list of fixed-size
// chunks, so an element never moves once it has been written. Locations
// handed out by Append stay valid for the lifetime of the pool.
//
// Nothing is ever removed from a pool. Elements that no piece references any
// more stay allocated until the pool itself is released.
package buffer
