// Package config loads the emulator's TOML configuration file: which
// bridge port to listen on, the clock's free-running period, and logging
// verbosity. Grounded on the ambient configuration layer SPEC_FULL.md §2
// calls for, using github.com/BurntSushi/toml the way it appears
// elsewhere in the retrieved example pack for plain struct-tagged config
// files (the teacher itself carries no config file — it is a driver
// library, configured entirely through Go call sites).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the top-level TOML document.
type Config struct {
	Bridge BridgeConfig `toml:"bridge"`
	Clock  ClockConfig  `toml:"clock"`
	Log    LogConfig    `toml:"log"`
}

// BridgeConfig configures the TCP register bridge (spec.md §4.K).
type BridgeConfig struct {
	// Addr is the listen address, e.g. ":1088". Defaults to the
	// datasheet-adjacent default port 1088 (spec.md §4.K).
	Addr string `toml:"addr"`
}

// ClockConfig configures the free-running master clock driver.
type ClockConfig struct {
	// PeriodMicros is the wall-clock interval between successive
	// Block.Tick calls when running free, not to be confused with any
	// SM's own CLKDIV (spec.md §4.A/§4.F are independent of this).
	PeriodMicros int64 `toml:"period_micros"`
}

// LogConfig configures the ambient structured logger.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Bridge: BridgeConfig{Addr: ":1088"},
		Clock:  ClockConfig{PeriodMicros: 1000},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads and parses a TOML config file at path, starting from
// Default() so a partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}
