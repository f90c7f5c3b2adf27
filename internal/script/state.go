package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/internal/replay"
	"github.com/dshills/piecetable/logging"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 5 * time.Second

// State wraps a gopher-lua state bound to one piece table.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes calls
// from Go.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool

	table     *piecetable.Table[string]
	initial   string
	timeout   time.Duration
	normalize bool
	tableOpts []piecetable.Option
	out       io.Writer
	logger    *logging.Logger
}

// StateOption configures a State.
type StateOption func(*State)

// WithInitial sets the starting text of pt.
func WithInitial(text string) StateOption {
	return func(s *State) { s.initial = text }
}

// WithTimeout bounds each run. Zero disables the limit.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithNormalize toggles NFC normalization of text passed to tables.
func WithNormalize(v bool) StateOption {
	return func(s *State) { s.normalize = v }
}

// WithTableOptions sets the options used for every table the script sees.
func WithTableOptions(opts ...piecetable.Option) StateOption {
	return func(s *State) { s.tableOpts = opts }
}

// WithOutput sets the destination of print.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) { s.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a sandboxed Lua state with the pt global installed.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout:   DefaultTimeout,
		normalize: true,
		out:       io.Discard,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("script")

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.installPrint()

	s.table = s.newTable(s.initial)
	registerTableType(s)
	s.L.SetGlobal("pt", s.wrap(s.table))
	return s
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *State) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(s.out, strings.Join(parts, "\t"))
		return 0
	}))
}

func (s *State) newTable(text string) *piecetable.Table[string] {
	return piecetable.New(replay.Segment(text, s.normalize), s.tableOpts...)
}

// Table returns the table bound to pt.
func (s *State) Table() *piecetable.Table[string] {
	return s.table
}

// DoString runs Lua source.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, "<string>", func() error { return s.L.DoString(code) })
}

// DoFile runs the Lua file at path.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, path, func() error { return s.L.DoFile(path) })
}

func (s *State) run(ctx context.Context, source string, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("lua panic in %s: %v", source, r)
		}
	}()

	start := time.Now()
	if err := fn(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Mark(errors.Wrapf(ctxErr, "%s", source), ErrInterrupted)
		}
		return errors.Wrapf(err, "%s", source)
	}
	s.logger.Debug("ran %s in %s", source, time.Since(start))
	return nil
}

// Close releases the Lua state.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}

// IsClosed reports whether Close was called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
