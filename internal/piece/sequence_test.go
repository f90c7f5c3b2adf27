package piece

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable/internal/buffer"
)

// slot identifies one element by where it is stored.
type slot struct {
	buf buffer.ID
	off int
}

// expand lists the storage slot of every logical element.
func expand(s *Sequence) []slot {
	var out []slot
	for _, p := range s.Pieces() {
		for i := 0; i < p.Len; i++ {
			out = append(out, slot{p.Buffer, p.Start + i})
		}
	}
	return out
}

// fakeBuffers tracks buffer sizes for Validate.
type fakeBuffers struct {
	original int
	added    int
}

func (f *fakeBuffers) len(id buffer.ID) int {
	if id == buffer.Original {
		return f.original
	}
	return f.added
}

func mustValidate(t *testing.T, s *Sequence, bufs *fakeBuffers) {
	t.Helper()
	if err := s.Validate(bufs.len); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestNewSequence(t *testing.T) {
	s := NewSequence(Config{})
	if s.Len() != 0 || s.Count() != 0 {
		t.Errorf("empty sequence: Len=%d Count=%d", s.Len(), s.Count())
	}

	s = NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 5}, Piece{Len: 0})
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (empty pieces skipped)", s.Count())
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
}

func TestLocate(t *testing.T) {
	s := NewSequence(Config{},
		Piece{Buffer: buffer.Original, Start: 0, Len: 3},
		Piece{Buffer: buffer.Added, Start: 0, Len: 2},
		Piece{Buffer: buffer.Original, Start: 3, Len: 4},
	)

	tests := []struct {
		pos  int
		want Location
	}{
		{0, Location{0, 0}},
		{2, Location{0, 2}},
		{3, Location{1, 0}},
		{4, Location{1, 1}},
		{5, Location{2, 0}},
		{8, Location{2, 3}},
		{9, Location{3, 0}},
	}
	for _, tt := range tests {
		got, err := s.Locate(tt.pos)
		if err != nil {
			t.Errorf("Locate(%d) error = %v", tt.pos, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Locate(%d) = %+v, want %+v", tt.pos, got, tt.want)
		}
	}

	for _, pos := range []int{-1, 10} {
		if _, err := s.Locate(pos); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Locate(%d) error = %v, want ErrOutOfRange", pos, err)
		}
	}
}

func TestSplitAt(t *testing.T) {
	s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 5})

	k, err := s.SplitAt(2)
	if err != nil {
		t.Fatalf("SplitAt(2) error = %v", err)
	}
	if k != 1 {
		t.Errorf("SplitAt(2) = %d, want 1", k)
	}
	want := []Piece{
		{Buffer: buffer.Original, Start: 0, Len: 2},
		{Buffer: buffer.Original, Start: 2, Len: 3},
	}
	if got := s.Pieces(); !slices.Equal(got, want) {
		t.Errorf("Pieces() = %v, want %v", got, want)
	}

	// Splitting on a boundary is a no-op.
	v := s.Version()
	for _, pos := range []int{0, 2, 5} {
		if _, err := s.SplitAt(pos); err != nil {
			t.Fatalf("SplitAt(%d) error = %v", pos, err)
		}
	}
	if s.Version() != v || s.Count() != 2 {
		t.Errorf("boundary splits changed the sequence: count=%d", s.Count())
	}
}

func TestInsertPiece(t *testing.T) {
	s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 4})

	k, err := s.InsertPiece(2, Piece{Buffer: buffer.Added, Start: 0, Len: 1})
	if err != nil {
		t.Fatalf("InsertPiece error = %v", err)
	}
	if k != 1 {
		t.Errorf("InsertPiece ordinal = %d, want 1", k)
	}
	want := []Piece{
		{Buffer: buffer.Original, Start: 0, Len: 2},
		{Buffer: buffer.Added, Start: 0, Len: 1},
		{Buffer: buffer.Original, Start: 2, Len: 2},
	}
	if got := s.Pieces(); !slices.Equal(got, want) {
		t.Errorf("Pieces() = %v, want %v", got, want)
	}

	if _, err := s.InsertPiece(0, Piece{Buffer: buffer.Added}); !errors.Is(err, ErrEmptyPiece) {
		t.Errorf("empty piece error = %v, want ErrEmptyPiece", err)
	}
	if _, err := s.InsertPiece(6, Piece{Buffer: buffer.Added, Len: 1}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("past-end insert error = %v, want ErrOutOfRange", err)
	}
	if s.Len() != 5 {
		t.Errorf("failed inserts changed Len to %d", s.Len())
	}
}

func TestRemoveRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		want       []Piece
	}{
		{"middle", 1, 3, []Piece{{buffer.Original, 0, 1}, {buffer.Original, 3, 2}}},
		{"prefix", 0, 2, []Piece{{buffer.Original, 2, 3}}},
		{"suffix", 4, 5, []Piece{{buffer.Original, 0, 4}}},
		{"all", 0, 5, []Piece{}},
		{"empty range", 2, 2, []Piece{{buffer.Original, 0, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 5})
			if _, err := s.RemoveRange(tt.start, tt.end); err != nil {
				t.Fatalf("RemoveRange(%d, %d) error = %v", tt.start, tt.end, err)
			}
			if got := s.Pieces(); !slices.Equal(got, tt.want) {
				t.Errorf("Pieces() = %v, want %v", got, tt.want)
			}
			mustValidate(t, s, &fakeBuffers{original: 5})
		})
	}
}

func TestRemoveRangeErrors(t *testing.T) {
	s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 3})
	for _, r := range [][2]int{{-1, 1}, {2, 1}, {0, 4}, {4, 4}} {
		if _, err := s.RemoveRange(r[0], r[1]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("RemoveRange(%d, %d) error = %v, want ErrOutOfRange", r[0], r[1], err)
		}
	}
	if s.Len() != 3 || s.Count() != 1 {
		t.Errorf("failed removes changed the sequence: Len=%d Count=%d", s.Len(), s.Count())
	}
}

func TestMergeAdjacent(t *testing.T) {
	s := NewSequence(Config{},
		Piece{Buffer: buffer.Original, Start: 0, Len: 2},
		Piece{Buffer: buffer.Original, Start: 2, Len: 3},
		Piece{Buffer: buffer.Added, Start: 3, Len: 1},
		Piece{Buffer: buffer.Added, Start: 0, Len: 1},
	)

	if !s.MergeAdjacent(0) {
		t.Error("MergeAdjacent(0) should merge contiguous original pieces")
	}
	if s.MergeAdjacent(1) {
		t.Error("MergeAdjacent(1) should not merge non-contiguous added pieces")
	}
	if s.MergeAdjacent(2) || s.MergeAdjacent(-1) {
		t.Error("MergeAdjacent outside [0, Count-1) should be a no-op")
	}
	want := []Piece{
		{Buffer: buffer.Original, Start: 0, Len: 5},
		{Buffer: buffer.Added, Start: 3, Len: 1},
		{Buffer: buffer.Added, Start: 0, Len: 1},
	}
	if got := s.Pieces(); !slices.Equal(got, want) {
		t.Errorf("Pieces() = %v, want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	var pieces []Piece
	for i := 0; i < 50; i++ {
		pieces = append(pieces, Piece{Buffer: buffer.Added, Start: i, Len: 1})
	}
	s := NewSequence(Config{LeafCapacity: 4, Fanout: 4}, pieces...)
	if s.Height() == 0 {
		t.Fatal("expected a multi-level tree")
	}

	if got := s.Coalesce(); got != 49 {
		t.Errorf("Coalesce() = %d, want 49", got)
	}
	if s.Count() != 1 || s.Len() != 50 {
		t.Errorf("after Coalesce: Count=%d Len=%d", s.Count(), s.Len())
	}
	if s.Height() != 0 {
		t.Errorf("Height() = %d, want 0", s.Height())
	}
	mustValidate(t, s, &fakeBuffers{added: 50})
}

func TestIteratorStale(t *testing.T) {
	s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 4})
	it := s.Iter()
	if !it.Next() {
		t.Fatal("expected a piece")
	}
	if _, err := s.SplitAt(2); err != nil {
		t.Fatal(err)
	}
	if !it.Stale() {
		t.Error("iterator should be stale after a split")
	}
	if it.Next() {
		t.Error("Next() on a stale iterator should return false")
	}
}

func TestIteratorOffsets(t *testing.T) {
	s := NewSequence(Config{},
		Piece{Buffer: buffer.Original, Start: 0, Len: 3},
		Piece{Buffer: buffer.Added, Start: 0, Len: 2},
	)
	it := s.Iter()
	var offsets []int
	for it.Next() {
		offsets = append(offsets, it.Offset())
	}
	if !slices.Equal(offsets, []int{0, 3}) {
		t.Errorf("offsets = %v, want [0 3]", offsets)
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	s := NewSequence(Config{}, Piece{Buffer: buffer.Original, Start: 0, Len: 5})
	if err := s.Validate((&fakeBuffers{original: 4}).len); !errors.Is(err, ErrInvariant) {
		t.Errorf("Validate with short buffer error = %v, want ErrInvariant", err)
	}

	s.root.summary.elems++
	if err := s.Validate((&fakeBuffers{original: 5}).len); !errors.Is(err, ErrInvariant) {
		t.Errorf("Validate with bad summary error = %v, want ErrInvariant", err)
	}
}

// TestRandomEditsMatchModel drives a small-fanout tree through many
// splits, merges and rebalances and compares it against a flat model.
func TestRandomEditsMatchModel(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		rng := rand.New(rand.NewSource(seed))
		const initial = 20

		s := NewSequence(Config{LeafCapacity: 4, Fanout: 4}, Piece{Buffer: buffer.Original, Len: initial})
		bufs := &fakeBuffers{original: initial}
		var model []slot
		for i := 0; i < initial; i++ {
			model = append(model, slot{buffer.Original, i})
		}

		for step := 0; step < 3000; step++ {
			switch op := rng.Intn(10); {
			case op < 5 || len(model) == 0:
				pos := rng.Intn(len(model) + 1)
				n := 1 + rng.Intn(3)
				p := Piece{Buffer: buffer.Added, Start: bufs.added, Len: n}
				k, err := s.InsertPiece(pos, p)
				if err != nil {
					t.Fatalf("seed %d step %d: InsertPiece(%d) error = %v", seed, step, pos, err)
				}
				s.MergeAdjacent(k - 1)
				for i := n - 1; i >= 0; i-- {
					model = slices.Insert(model, pos, slot{buffer.Added, bufs.added + i})
				}
				bufs.added += n
			default:
				start := rng.Intn(len(model))
				end := start + 1 + rng.Intn(min(3, len(model)-start))
				k, err := s.RemoveRange(start, end)
				if err != nil {
					t.Fatalf("seed %d step %d: RemoveRange(%d, %d) error = %v", seed, step, start, end, err)
				}
				s.MergeAdjacent(k - 1)
				model = slices.Delete(model, start, end)
			}

			if s.Len() != len(model) {
				t.Fatalf("seed %d step %d: Len() = %d, model %d", seed, step, s.Len(), len(model))
			}
			if step%50 == 0 {
				mustValidate(t, s, bufs)
				if got := expand(s); !slices.Equal(got, model) {
					t.Fatalf("seed %d step %d: content diverged from model", seed, step)
				}
			}
		}
		mustValidate(t, s, bufs)
		if got := expand(s); !slices.Equal(got, model) {
			t.Fatalf("seed %d: final content diverged from model", seed)
		}
	}
}
