package piecetable

import (
	"github.com/dshills/piecetable/internal/buffer"
	"github.com/dshills/piecetable/internal/piece"
	"github.com/dshills/piecetable/logging"
)

// Default configuration values.
const (
	DefaultLeafCapacity = piece.DefaultLeafCapacity
	DefaultFanout       = piece.DefaultFanout
	DefaultChunkSize    = buffer.DefaultChunkSize
)

// MergePolicy controls when adjoining pieces are fused.
type MergePolicy uint8

const (
	// MergeEager merges around every insertion and removal.
	MergeEager MergePolicy = iota

	// MergeDeferred never merges during edits; call Coalesce to merge.
	MergeDeferred
)

// String returns the policy name.
func (m MergePolicy) String() string {
	switch m {
	case MergeEager:
		return "eager"
	case MergeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// options holds the settings an Option can change.
type options struct {
	logger       *logging.Logger
	leafCapacity int
	fanout       int
	chunkSize    int
	merge        MergePolicy
}

// Option configures a Table during creation.
type Option func(*options)

// WithLogger sets the logger for structural events. Messages are written
// at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLeafCapacity sets the maximum number of pieces per index leaf.
func WithLeafCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.leafCapacity = n
		}
	}
}

// WithFanout sets the maximum number of children per index node.
func WithFanout(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.fanout = n
		}
	}
}

// WithChunkSize sets the number of elements per added-storage chunk.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithMergePolicy sets when adjoining pieces are merged.
func WithMergePolicy(m MergePolicy) Option {
	return func(o *options) {
		o.merge = m
	}
}
