package replay

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// OpKind names an edit operation.
type OpKind string

// Supported operations.
const (
	OpInsert      OpKind = "insert"       // Insert each cluster of Value at Index
	OpInsertSlice OpKind = "insert_slice" // Insert Value as one piece at Index
	OpRemove      OpKind = "remove"       // Remove the cluster at Index
	OpRemoveRange OpKind = "remove_range" // Remove clusters in [Index, End)
)

// Op is one step of a script.
type Op struct {
	Kind  OpKind `yaml:"op"`
	Index int    `yaml:"index"`
	End   int    `yaml:"end,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Script is a parsed edit script.
type Script struct {
	Initial string  `yaml:"initial"`
	Ops     []Op    `yaml:"ops"`
	Expect  *string `yaml:"expect,omitempty"`
}

// Parse decodes a YAML script and checks every op. Unknown fields are
// rejected.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decoding script")
	}
	for i, op := range s.Ops {
		if err := op.check(); err != nil {
			return nil, errors.Wrapf(err, "op %d", i)
		}
	}
	return &s, nil
}

// LoadFile reads and parses the script at path.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading script %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "script %s", path)
	}
	return s, nil
}

// check validates the fields an op kind needs. Index bounds are left to
// the table.
func (op Op) check() error {
	switch op.Kind {
	case OpInsert, OpInsertSlice:
		if op.Value == "" {
			return errors.Wrapf(ErrInvalidOp, "%s needs a value", op.Kind)
		}
	case OpRemove:
	case OpRemoveRange:
		if op.End < op.Index {
			return errors.Wrapf(ErrInvalidOp, "%s end %d before index %d", op.Kind, op.End, op.Index)
		}
	case "":
		return errors.Wrap(ErrInvalidOp, "missing op")
	default:
		return errors.Wrapf(ErrUnknownOp, "%q", op.Kind)
	}
	return nil
}
