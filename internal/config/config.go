// Package config loads the host tools' TOML configuration.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"ccdump-go/services/dump"
)

// File is the on-disk layout. Every section is optional.
type File struct {
	Dump    dump.Config `toml:"dump"`
	Collect Collect     `toml:"collect"`
	Sim     Sim         `toml:"sim"`
}

// Collect configures hexcollect.
type Collect struct {
	// Input is a serial device or file path; "-" is stdin.
	Input string `toml:"input"`
	// Output is the base path; ".hex" and ".bin" are appended.
	Output string `toml:"output"`
	// Trigger is a command run before reading, e.g. a reset helper. It is
	// split with shell quoting rules, not run through a shell.
	Trigger  string `toml:"trigger"`
	Expected int    `toml:"expected"`
	// TimeoutS bounds the whole capture; 0 waits forever.
	TimeoutS int `toml:"timeout_s"`
}

// Sim configures the simulated target used by ccsim.
type Sim struct {
	Image            string `toml:"image"`
	ChipID           int    `toml:"chip_id"`
	Locked           bool   `toml:"locked"`
	OscUnstableReads int    `toml:"osc_unstable_reads"`
	IgnoreHalt       bool   `toml:"ignore_halt"`
	BusyRounds       int    `toml:"busy_rounds"`
}

func Default() File {
	return File{
		Dump:    dump.DefaultConfig(),
		Collect: Collect{Input: "-", Output: "cc1110_dump", Expected: 32 * 1024},
		Sim:     Sim{ChipID: 0x89A3},
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (File, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return File{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if und := meta.Undecoded(); len(und) > 0 {
		keys := make([]string, 0, len(und))
		for _, k := range und {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return File{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := Validate(cfg); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode is Load for an in-memory document.
func Decode(doc string) (File, error) {
	cfg := Default()
	meta, err := toml.Decode(doc, &cfg)
	if err != nil {
		return File{}, fmt.Errorf("config parse failed: %w", err)
	}
	if und := meta.Undecoded(); len(und) > 0 {
		return File{}, fmt.Errorf("unknown key %s", und[0].String())
	}
	return cfg, Validate(cfg)
}

func Validate(cfg File) error {
	if err := cfg.Dump.Validate(); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if cfg.Collect.Expected < 0 || cfg.Collect.TimeoutS < 0 {
		return fmt.Errorf("collect: expected and timeout_s must be non-negative")
	}
	if cfg.Sim.ChipID < 0 || cfg.Sim.ChipID > 0xFFFF {
		return fmt.Errorf("sim: chip_id must fit 16 bits")
	}
	return nil
}
