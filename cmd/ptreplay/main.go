// Package main is the entry point for ptreplay, which replays edit scripts
// against a piece table and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable/internal/config"
	"github.com/dshills/piecetable/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errHelp reports that usage or version output was requested.
var errHelp = errors.New("help requested")

// options holds the parsed command line.
type options struct {
	ConfigPath string
	LogLevel   string
	Initial    string
	Verify     bool
	Watch      bool
	Script     string

	// Flags given explicitly, which override the config file.
	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stdout, stderr)
	if errors.Is(err, errHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: loading config: %v\n", err)
		return 1
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.LogLevel(),
		Output: stderr,
		Prefix: "ptreplay",
	})

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &replayer{cfg: cfg, logger: logger, out: stdout, initial: opts.Initial}
	if opts.Watch {
		if err := r.watch(ctx, opts.Script); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	if err := r.replay(ctx, opts.Script); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (options, error) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("ptreplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (TOML)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.Initial, "initial", "", "Initial text for Lua scripts")
	fs.BoolVar(&opts.Verify, "verify", false, "Check the table against a plain slice after every op")
	fs.BoolVar(&opts.Watch, "watch", false, "Replay again whenever the script changes")
	fs.BoolVar(&opts.Watch, "w", false, "Replay again whenever the script changes (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "ptreplay - replay edit scripts against a piece table\n\n")
		fmt.Fprintf(stderr, "Usage: ptreplay [options] script.(yaml|lua)\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  ptreplay edits.yaml                 Replay once\n")
		fmt.Fprintf(stderr, "  ptreplay -verify edits.yaml         Replay with reference checks\n")
		fmt.Fprintf(stderr, "  ptreplay -initial 'abc' edit.lua    Run a Lua script on \"abc\"\n")
		fmt.Fprintf(stderr, "  ptreplay -w edits.yaml              Replay on every save\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}

	if showVersion {
		fmt.Fprintf(stdout, "ptreplay %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, errHelp
	}

	if _, ok := logging.ParseLevel(opts.LogLevel); !ok {
		return opts, errors.Newf("invalid log level %q (must be debug, info, warn, or error)", opts.LogLevel)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("exactly one script is required")
	}
	opts.Script = fs.Arg(0)

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// apply lays explicitly given flags over cfg.
func (o options) apply(cfg *config.Config) {
	if o.set["log-level"] {
		cfg.Log.Level = o.LogLevel
	}
	if o.set["verify"] {
		cfg.Replay.Verify = o.Verify
	}
}
