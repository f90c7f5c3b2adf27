package replay

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/logging"
)

// Result describes a finished run.
type Result struct {
	Text     string           // Final content
	Ops      int              // Operations applied
	Removed  []string         // Clusters returned by remove ops, in order
	Stats    piecetable.Stats // Table shape at the end of the run
	Mismatch int              // Index of the first diverging op, or -1
}

// Runner applies scripts to fresh tables.
type Runner struct {
	verify    bool
	normalize bool
	tableOpts []piecetable.Option
	logger    *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithVerify mirrors every op on a slice and validates the table after
// each step.
func WithVerify(v bool) Option {
	return func(r *Runner) { r.verify = v }
}

// WithNormalize toggles NFC normalization of script text.
func WithNormalize(v bool) Option {
	return func(r *Runner) { r.normalize = v }
}

// WithTableOptions sets the options passed to every new table.
func WithTableOptions(opts ...piecetable.Option) Option {
	return func(r *Runner) { r.tableOpts = opts }
}

// WithLogger sets the logger for run progress.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner. Normalization is on by default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		normalize: true,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("replay")
	return r
}

// run holds the state of one script execution.
type run struct {
	*Runner
	table  *piecetable.Table[string]
	model  []string
	result *Result
}

// Run executes s on a new table. The context is checked between ops.
//
// On failure the returned Result reflects the table as it stood when the
// failing op was reached.
func (r *Runner) Run(ctx context.Context, s *Script) (*Result, error) {
	initial := Segment(s.Initial, r.normalize)
	st := &run{
		Runner: r,
		table:  piecetable.New(initial, r.tableOpts...),
		result: &Result{Mismatch: -1},
	}
	if r.verify {
		st.model = slices.Clone(initial)
	}
	r.logger.Debug("run start: %d clusters, %d ops", len(initial), len(s.Ops))

	err := st.apply(ctx, s.Ops)
	st.finish()
	if err != nil {
		return st.result, err
	}

	if s.Expect != nil {
		want := *s.Expect
		if r.normalize {
			want = Join(Segment(want, true))
		}
		if st.result.Text != want {
			return st.result, errors.Wrapf(ErrExpectation, "got %q, want %q", st.result.Text, want)
		}
	}
	r.logger.Debug("run done: %d ops, %d pieces", st.result.Ops, st.result.Stats.Pieces)
	return st.result, nil
}

func (st *run) apply(ctx context.Context, ops []Op) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "before op %d", i)
		}
		if err := op.check(); err != nil {
			return errors.Wrapf(err, "op %d", i)
		}
		if err := st.step(op); err != nil {
			return errors.Wrapf(err, "op %d (%s)", i, op.Kind)
		}
		st.result.Ops++

		if st.verify {
			if err := st.compare(); err != nil {
				st.result.Mismatch = i
				return errors.Wrapf(err, "op %d (%s)", i, op.Kind)
			}
		}
	}
	return nil
}

func (st *run) step(op Op) error {
	switch op.Kind {
	case OpInsert:
		clusters := Segment(op.Value, st.normalize)
		for j, c := range clusters {
			if err := st.table.Insert(op.Index+j, c); err != nil {
				return err
			}
			if st.verify {
				st.model = slices.Insert(st.model, op.Index+j, c)
			}
		}
		return st.settle(op.Index-1, op.Index+len(clusters)+1)
	case OpInsertSlice:
		clusters := Segment(op.Value, st.normalize)
		if err := st.table.InsertSlice(op.Index, clusters); err != nil {
			return err
		}
		if st.verify {
			st.model = slices.Insert(st.model, op.Index, clusters...)
		}
		return st.settle(op.Index-1, op.Index+len(clusters)+1)
	case OpRemove:
		v, err := st.table.Remove(op.Index)
		if err != nil {
			return err
		}
		st.result.Removed = append(st.result.Removed, v)
		if st.verify {
			st.model = slices.Delete(st.model, op.Index, op.Index+1)
		}
		return st.settle(op.Index-1, op.Index+1)
	case OpRemoveRange:
		if err := st.table.RemoveRange(op.Index, op.End); err != nil {
			return err
		}
		if st.verify {
			st.model = slices.Delete(st.model, op.Index, op.End)
		}
		return st.settle(op.Index-1, op.Index+1)
	}
	return nil
}

// settle re-segments the elements in [lo, hi) so each element stays one
// grapheme cluster after an edit. Only the clusters adjacent to the edit
// are examined.
func (st *run) settle(lo, hi int) error {
	lo, hi = max(lo, 0), min(hi, st.table.Len())
	if hi-lo < 2 {
		return nil
	}

	window := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		v, err := st.table.Get(i)
		if err != nil {
			return err
		}
		window = append(window, v)
	}
	clusters := Segment(Join(window), st.normalize)
	if !slices.Equal(clusters, window) {
		if err := st.table.RemoveRange(lo, hi); err != nil {
			return err
		}
		if err := st.table.InsertSlice(lo, clusters); err != nil {
			return err
		}
		st.logger.Debug("resegmented [%d, %d): %d -> %d clusters", lo, hi, len(window), len(clusters))
	}

	if st.verify && hi <= len(st.model) {
		ref := Segment(Join(st.model[lo:hi]), st.normalize)
		st.model = slices.Replace(st.model, lo, hi, ref...)
	}
	return nil
}

// compare checks the table against the reference slice.
func (st *run) compare() error {
	if err := st.table.Validate(); err != nil {
		return err
	}
	if st.table.Len() != len(st.model) {
		return errors.Wrapf(ErrMismatch, "length %d, reference %d", st.table.Len(), len(st.model))
	}
	i := 0
	for v := range st.table.Values() {
		if v != st.model[i] {
			return errors.Wrapf(ErrMismatch, "index %d holds %q, reference %q", i, v, st.model[i])
		}
		i++
	}
	return nil
}

func (st *run) finish() {
	st.result.Text = Join(st.table.Slice())
	st.result.Stats = st.table.Stats()
}
