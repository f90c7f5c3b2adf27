package buffer

import "fmt"

// ID identifies one of the buffers owned by a Pool.
type ID uint8

const (
	// Original holds the initial content.
	Original ID = iota

	// Added holds every element appended after construction.
	Added
)

// String returns the buffer name.
func (id ID) String() string {
	switch id {
	case Original:
		return "original"
	case Added:
		return "added"
	default:
		return fmt.Sprintf("buffer(%d)", uint8(id))
	}
}

// DefaultChunkSize is the number of elements per Added chunk.
const DefaultChunkSize = 4096

// Location names a single element slot inside a Pool.
type Location struct {
	Buffer ID
	Offset int
}

// Stats describes the storage held by a Pool.
type Stats struct {
	OriginalLen int
	AddedLen    int
	AddedChunks int
}

// Pool is the append-only storage for one piece table.
// It is not safe for concurrent use.
type Pool[T any] struct {
	original  []T
	chunks    [][]T
	addedLen  int
	chunkSize int
}

// NewPool creates a pool whose Original buffer is a copy of initial.
// A chunkSize <= 0 selects DefaultChunkSize.
func NewPool[T any](initial []T, chunkSize int) *Pool[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	original := make([]T, len(initial))
	copy(original, initial)
	return &Pool[T]{
		original:  original,
		chunkSize: chunkSize,
	}
}

// Append stores v at the end of the Added buffer and returns its location.
func (p *Pool[T]) Append(v T) Location {
	loc := Location{Buffer: Added, Offset: p.addedLen}
	p.tail(1)[0] = v
	p.addedLen++
	return loc
}

// AppendSlice stores vs contiguously at the end of the Added buffer and
// returns the location of the first element. The run may span chunks.
func (p *Pool[T]) AppendSlice(vs []T) Location {
	loc := Location{Buffer: Added, Offset: p.addedLen}
	for len(vs) > 0 {
		room := p.tail(len(vs))
		n := copy(room, vs)
		vs = vs[n:]
		p.addedLen += n
	}
	return loc
}

// tail returns up to want writable slots at the end of the Added buffer,
// starting a new chunk when the last one is full.
func (p *Pool[T]) tail(want int) []T {
	last := len(p.chunks) - 1
	if last < 0 || len(p.chunks[last]) == p.chunkSize {
		p.chunks = append(p.chunks, make([]T, 0, p.chunkSize))
		last++
	}
	c := p.chunks[last]
	n := min(want, p.chunkSize-len(c))
	p.chunks[last] = c[:len(c)+n]
	return p.chunks[last][len(c):]
}

// Len returns the current size of the given buffer.
func (p *Pool[T]) Len(id ID) int {
	switch id {
	case Original:
		return len(p.original)
	case Added:
		return p.addedLen
	default:
		return 0
	}
}

// At returns the element stored at off in buffer id.
// It panics if the location was never written.
func (p *Pool[T]) At(id ID, off int) T {
	switch id {
	case Original:
		return p.original[off]
	case Added:
		if off < 0 || off >= p.addedLen {
			panic(fmt.Sprintf("buffer: added offset %d out of range [0, %d)", off, p.addedLen))
		}
		return p.chunks[off/p.chunkSize][off%p.chunkSize]
	default:
		panic(fmt.Sprintf("buffer: unknown %s", id))
	}
}

// Range calls yield for the n elements of buffer id starting at start, in
// order. It stops early and returns false if yield returns false.
func (p *Pool[T]) Range(id ID, start, n int, yield func(T) bool) bool {
	if id == Original {
		for _, v := range p.original[start : start+n] {
			if !yield(v) {
				return false
			}
		}
		return true
	}

	for n > 0 {
		c := p.chunks[start/p.chunkSize]
		lo := start % p.chunkSize
		hi := min(len(c), lo+n)
		for _, v := range c[lo:hi] {
			if !yield(v) {
				return false
			}
		}
		n -= hi - lo
		start += hi - lo
	}
	return true
}

// Stats reports how much storage the pool holds.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		OriginalLen: len(p.original),
		AddedLen:    p.addedLen,
		AddedChunks: len(p.chunks),
	}
}
