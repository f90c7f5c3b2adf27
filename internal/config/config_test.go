package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ptreplay.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Table.MergePolicy() != piecetable.MergeEager {
		t.Errorf("default merge = %v", cfg.Table.MergePolicy())
	}
	if cfg.Log.LogLevel() != logging.LevelInfo {
		t.Errorf("default level = %v", cfg.Log.LogLevel())
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	_, err := Load(path)
	if !errors.Is(err, ErrPathNotExist) {
		t.Fatalf("Load error = %v, want ErrPathNotExist", err)
	}
	if !strings.Contains(err.Error(), "absent.toml") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestLoadDoesNotValidate(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"trace\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Log.Level != "trace" {
		t.Fatalf("Level = %q, want trace", cfg.Log.Level)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("Validate() = %v, want ErrValidationFailed", err)
	}

	cfg.Log.Level = "debug"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after override = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[table]
leaf_capacity = 8
merge = "deferred"

[replay]
verify = true
lua_timeout = "750ms"

[watch]
debounce = "20ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Table.LeafCapacity != 8 {
		t.Errorf("LeafCapacity = %d, want 8", cfg.Table.LeafCapacity)
	}
	if cfg.Table.Fanout != piecetable.DefaultFanout {
		t.Errorf("Fanout = %d, want default", cfg.Table.Fanout)
	}
	if cfg.Table.MergePolicy() != piecetable.MergeDeferred {
		t.Errorf("merge = %v, want deferred", cfg.Table.MergePolicy())
	}
	if !cfg.Replay.Verify || !cfg.Replay.Normalize {
		t.Errorf("Replay = %+v", cfg.Replay)
	}
	if cfg.Replay.LuaTimeout.Std() != 750*time.Millisecond {
		t.Errorf("LuaTimeout = %v", cfg.Replay.LuaTimeout.Std())
	}
	if cfg.Watch.Debounce.Std() != 20*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Watch.Debounce.Std())
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"warn\"\n[table]\nfanout = 8\n")
	t.Setenv("PIECETABLE_LOG_LEVEL", "debug")
	t.Setenv("PIECETABLE_VERIFY", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Log.LogLevel() != logging.LevelDebug {
		t.Errorf("level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Table.Fanout != 8 {
		t.Errorf("Fanout = %d, want 8", cfg.Table.Fanout)
	}
	if !cfg.Replay.Verify {
		t.Error("PIECETABLE_VERIFY not applied")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantParse bool
		wantPath  string
	}{
		{"syntax", "[table\n", true, ""},
		{"unknown key", "[table]\nleaf_size = 3\n", true, ""},
		{"bad duration", "[watch]\ndebounce = \"soon\"\n", true, ""},
		{"small fanout", "[table]\nfanout = 2\n", false, "table.fanout"},
		{"zero chunk", "[table]\nchunk_size = 0\n", false, "table.chunk_size"},
		{"bad merge", "[table]\nmerge = \"lazy\"\n", false, "table.merge"},
		{"bad level", "[log]\nlevel = \"loud\"\n", false, "log.level"},
		{"negative debounce", "[watch]\ndebounce = \"-1s\"\n", false, "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			if err == nil {
				err = cfg.Validate()
			}
			if err == nil {
				t.Fatal("expected error")
			}

			var pe *ParseError
			if got := errors.As(err, &pe); got != tt.wantParse {
				t.Errorf("ParseError = %v, want %v (err: %v)", got, tt.wantParse, err)
			}
			if tt.wantPath == "" {
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			if ve.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", ve.Path, tt.wantPath)
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Error("errors.Is(err, ErrValidationFailed) = false")
			}
		})
	}
}

func TestTableOptions(t *testing.T) {
	cfg := Default()
	cfg.Table.LeafCapacity = 4
	cfg.Table.Fanout = 4
	cfg.Table.Merge = "deferred"

	tbl := piecetable.New([]int{}, cfg.Table.Options(logging.Nop())...)
	for i := 0; i < 3; i++ {
		_ = tbl.Insert(i, i)
	}
	if tbl.PieceCount() != 3 {
		t.Errorf("PieceCount() = %d, want 3 under deferred merging", tbl.PieceCount())
	}
}
