package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
initial: "hello world"
ops:
  - {op: insert_slice, index: 6, value: "big "}
  - {op: remove, index: 0}
  - op: remove_range
    index: 0
    end: 4
expect: "big world"
`))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if s.Initial != "hello world" {
		t.Errorf("Initial = %q", s.Initial)
	}
	want := []Op{
		{Kind: OpInsertSlice, Index: 6, Value: "big "},
		{Kind: OpRemove, Index: 0},
		{Kind: OpRemoveRange, Index: 0, End: 4},
	}
	if len(s.Ops) != len(want) {
		t.Fatalf("len(Ops) = %d, want %d", len(s.Ops), len(want))
	}
	for i := range want {
		if s.Ops[i] != want[i] {
			t.Errorf("Ops[%d] = %+v, want %+v", i, s.Ops[i], want[i])
		}
	}
	if s.Expect == nil || *s.Expect != "big world" {
		t.Errorf("Expect = %v", s.Expect)
	}
}

func TestParseNoExpect(t *testing.T) {
	s, err := Parse([]byte("initial: abc\nops: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Expect != nil {
		t.Errorf("Expect = %q, want nil", *s.Expect)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown op", "ops: [{op: replace, index: 0}]", ErrUnknownOp},
		{"missing op", "ops: [{index: 0}]", ErrInvalidOp},
		{"insert without value", "ops: [{op: insert, index: 0}]", ErrInvalidOp},
		{"inverted range", "ops: [{op: remove_range, index: 3, end: 1}]", ErrInvalidOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("initial: x\nopz: []\n")); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := Parse([]byte("ops: [{op: remove, idx: 1}]")); err == nil {
		t.Error("expected error for unknown op field")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edit.yaml")
	if err := os.WriteFile(path, []byte("initial: ab\nops:\n  - {op: remove, index: 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error = %v", err)
	}
	if len(s.Ops) != 1 {
		t.Errorf("len(Ops) = %d, want 1", len(s.Ops))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
