package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/internal/config"
	"github.com/dshills/piecetable/internal/replay"
	"github.com/dshills/piecetable/internal/script"
	"github.com/dshills/piecetable/internal/watcher"
	"github.com/dshills/piecetable/logging"
)

// errUnsupportedScript indicates a script extension with no runner.
var errUnsupportedScript = errors.New("unsupported script type")

// replayer runs scripts with one configuration.
type replayer struct {
	cfg     config.Config
	logger  *logging.Logger
	out     io.Writer
	initial string
}

// replay runs the script at path once and prints the outcome.
func (r *replayer) replay(ctx context.Context, path string) error {
	runID := uuid.NewString()
	logger := r.logger.WithField("run", runID)
	logger.Info("replaying %s", path)

	tableOpts := r.cfg.Table.Options(logger)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err := replay.LoadFile(path)
		if err != nil {
			return err
		}
		runner := replay.NewRunner(
			replay.WithVerify(r.cfg.Replay.Verify),
			replay.WithNormalize(r.cfg.Replay.Normalize),
			replay.WithTableOptions(tableOpts...),
			replay.WithLogger(logger),
		)
		res, err := runner.Run(ctx, s)
		if res != nil {
			r.print(res.Text, res.Ops, res.Stats)
		}
		if err != nil {
			return errors.Wrapf(err, "run %s", runID)
		}

	case ".lua":
		st := script.NewState(
			script.WithInitial(r.initial),
			script.WithTimeout(r.cfg.Replay.LuaTimeout.Std()),
			script.WithNormalize(r.cfg.Replay.Normalize),
			script.WithTableOptions(tableOpts...),
			script.WithOutput(r.out),
			script.WithLogger(logger),
		)
		defer st.Close()

		err := st.DoFile(ctx, path)
		t := st.Table()
		r.print(replay.Join(t.Slice()), -1, t.Stats())
		if err != nil {
			return errors.Wrapf(err, "run %s", runID)
		}
		if r.cfg.Replay.Verify {
			if err := t.Validate(); err != nil {
				return errors.Wrapf(err, "run %s", runID)
			}
		}

	default:
		return errors.Wrapf(errUnsupportedScript, "%s", path)
	}

	logger.Info("run complete")
	return nil
}

// print writes the final text followed by a stats line. ops < 0 omits the
// op count.
func (r *replayer) print(text string, ops int, st piecetable.Stats) {
	fmt.Fprintln(r.out, text)
	fmt.Fprintln(r.out, "--")
	if ops >= 0 {
		fmt.Fprintf(r.out, "ops=%d ", ops)
	}
	fmt.Fprintf(r.out, "len=%d pieces=%d height=%d original=%d added=%d chunks=%d\n",
		st.Len, st.Pieces, st.TreeHeight, st.OriginalLen, st.AddedLen, st.AddedChunks)
}

// watch replays the script now and after every change until ctx is done.
// Failed runs are reported and watching continues.
func (r *replayer) watch(ctx context.Context, path string) error {
	w, err := watcher.New(
		watcher.WithDebounce(r.cfg.Watch.Debounce.Std()),
		watcher.WithLogger(r.logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		return err
	}

	r.replayLogged(ctx, path)
	r.logger.Info("watching %s, press Ctrl-C to stop", path)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping")
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Op.Has(watcher.OpRemove) && !ev.Op.Has(watcher.OpCreate) {
				r.logger.Warn("%s was removed", path)
				continue
			}
			r.replayLogged(ctx, path)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			r.logger.Error("watch error: %v", err)
		}
	}
}

func (r *replayer) replayLogged(ctx context.Context, path string) {
	if err := r.replay(ctx, path); err != nil {
		r.logger.Error("%v", err)
	}
}
