package config

import (
	"bytes"
	"io/fs"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/internal/config/loader"
	"github.com/dshills/piecetable/logging"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PIECETABLE_"

// Config is the complete tool configuration.
type Config struct {
	Table  TableConfig  `toml:"table"`
	Log    LogConfig    `toml:"log"`
	Replay ReplayConfig `toml:"replay"`
	Watch  WatchConfig  `toml:"watch"`
}

// TableConfig shapes every table the tool creates.
type TableConfig struct {
	LeafCapacity int    `toml:"leaf_capacity"`
	Fanout       int    `toml:"fanout"`
	ChunkSize    int    `toml:"chunk_size"`
	Merge        string `toml:"merge"` // "eager" or "deferred"
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `toml:"level"`
}

// ReplayConfig controls script execution.
type ReplayConfig struct {
	Verify     bool     `toml:"verify"`      // Check against a slice after every op
	Normalize  bool     `toml:"normalize"`   // NFC-normalize script text
	LuaTimeout Duration `toml:"lua_timeout"` // Zero disables the limit
}

// WatchConfig controls -watch mode.
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

// UnmarshalText parses strings such as "250ms".
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Wrapf(err, "duration %q", b)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration like time.Duration.String.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Table: TableConfig{
			LeafCapacity: piecetable.DefaultLeafCapacity,
			Fanout:       piecetable.DefaultFanout,
			ChunkSize:    piecetable.DefaultChunkSize,
			Merge:        piecetable.MergeEager.String(),
		},
		Log: LogConfig{Level: "info"},
		Replay: ReplayConfig{
			Normalize:  true,
			LuaTimeout: Duration(5 * time.Second),
		},
		Watch: WatchConfig{Debounce: Duration(100 * time.Millisecond)},
	}
}

// Validate checks every setting and returns the first problem found.
func (c Config) Validate() error {
	if c.Table.LeafCapacity < 4 {
		return &ValidationError{Path: "table.leaf_capacity", Value: c.Table.LeafCapacity, Message: "must be at least 4"}
	}
	if c.Table.Fanout < 4 {
		return &ValidationError{Path: "table.fanout", Value: c.Table.Fanout, Message: "must be at least 4"}
	}
	if c.Table.ChunkSize < 1 {
		return &ValidationError{Path: "table.chunk_size", Value: c.Table.ChunkSize, Message: "must be positive"}
	}
	if _, ok := parseMerge(c.Table.Merge); !ok {
		return &ValidationError{Path: "table.merge", Value: c.Table.Merge, Message: `must be "eager" or "deferred"`}
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return &ValidationError{Path: "log.level", Value: c.Log.Level, Message: "unknown level"}
	}
	if c.Replay.LuaTimeout < 0 {
		return &ValidationError{Path: "replay.lua_timeout", Value: c.Replay.LuaTimeout.Std(), Message: "must not be negative"}
	}
	if c.Watch.Debounce < 0 {
		return &ValidationError{Path: "watch.debounce", Value: c.Watch.Debounce.Std(), Message: "must not be negative"}
	}
	return nil
}

// MergePolicy returns the configured merge policy. Call Validate first;
// unknown names yield MergeEager.
func (c TableConfig) MergePolicy() piecetable.MergePolicy {
	m, _ := parseMerge(c.Merge)
	return m
}

// Options converts the settings into table options.
func (c TableConfig) Options(logger *logging.Logger) []piecetable.Option {
	return []piecetable.Option{
		piecetable.WithLeafCapacity(c.LeafCapacity),
		piecetable.WithFanout(c.Fanout),
		piecetable.WithChunkSize(c.ChunkSize),
		piecetable.WithMergePolicy(c.MergePolicy()),
		piecetable.WithLogger(logger),
	}
}

// LogLevel returns the configured log level, or LevelInfo if unknown.
func (c LogConfig) LogLevel() logging.Level {
	if l, ok := logging.ParseLevel(c.Level); ok {
		return l
	}
	return logging.LevelInfo
}

func parseMerge(s string) (piecetable.MergePolicy, bool) {
	switch strings.ToLower(s) {
	case "eager":
		return piecetable.MergeEager, true
	case "deferred":
		return piecetable.MergeDeferred, true
	default:
		return piecetable.MergeEager, false
	}
}

// Load builds the configuration from defaults, the TOML file at path and
// PIECETABLE_ environment variables. An empty path skips the file layer; a
// named file that does not exist is an error. The result is not validated:
// callers lay command line flags on top and then call Validate.
func Load(path string) (Config, error) {
	return load(loader.DefaultFS(), loader.NewEnvLoader(EnvPrefix), path)
}

func load(fsys loader.FileSystem, env *loader.EnvLoader, path string) (Config, error) {
	env.AddMapping(EnvPrefix+"VERIFY", "replay.verify")

	merged := map[string]any{}
	if path != "" {
		if _, err := fsys.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, errors.Wrapf(ErrPathNotExist, "%s", path)
			}
			return Config{}, errors.Wrapf(err, "config file %s", path)
		}
		fileCfg, err := loader.NewTOMLLoaderWithFS(fsys, path).Load()
		if err != nil {
			return Config{}, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}
	envCfg, err := env.Load()
	if err != nil {
		return Config{}, err
	}
	merged = loader.DeepMerge(merged, envCfg)

	return decode(path, merged)
}

// decode lays raw values over Default. Unknown keys are rejected.
func decode(source string, raw map[string]any) (Config, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}

	data, err := toml.Marshal(raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "encoding merged config")
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		if source == "" {
			source = "<env>"
		}
		return Config{}, loader.NewParseError(source, err)
	}
	return cfg, nil
}
