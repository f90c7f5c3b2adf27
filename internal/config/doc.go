// Package config holds the settings of the ptreplay tool.
//
// Settings come from three layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← PIECETABLE_SECTION_KEY
//	├─────────────────────────────┤
//	│  2. Config File             │  ← -config path (TOML)
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Default()
//	└─────────────────────────────┘
//
// Command line flags are applied by the caller after Load returns, so Load
// leaves validation to the caller.
//
// # Basic Usage
//
//	cfg, err := config.Load("ptreplay.toml")
//	if err != nil {
//	    return err
//	}
//	cfg.Log.Level = "debug" // from a flag
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	t := piecetable.New(initial, cfg.Table.Options(logger)...)
package config
