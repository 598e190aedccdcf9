// Package config loads loxmin.toml, the per-project interpreter settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"loxmin/internal/trace"
	"loxmin/internal/vm"
)

// FileName is the name searched for by Find.
const FileName = "loxmin.toml"

// Config mirrors loxmin.toml.
type Config struct {
	GC    GCConfig    `toml:"gc"`
	VM    VMConfig    `toml:"vm"`
	Trace TraceConfig `toml:"trace"`

	// Path is the file the config was read from; empty for defaults.
	Path string `toml:"-"`
}

// GCConfig is the [gc] table.
type GCConfig struct {
	Stress           bool `toml:"stress"`
	InitialThreshold int  `toml:"initial_threshold"`
	GrowthFactor     int  `toml:"growth_factor"`
}

// VMConfig is the [vm] table.
type VMConfig struct {
	MaxFrames          int `toml:"max_frames"`
	StackSlotsPerFrame int `toml:"stack_slots_per_frame"`
}

// TraceConfig is the [trace] table.
type TraceConfig struct {
	Level    string `toml:"level"`
	Output   string `toml:"output"`
	Mode     string `toml:"mode"`
	Format   string `toml:"format"`
	RingSize int    `toml:"ring_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		GC: GCConfig{
			InitialThreshold: vm.DefaultInitialGC,
			GrowthFactor:     vm.DefaultGrowthFactor,
		},
		VM: VMConfig{
			MaxFrames:          vm.DefaultMaxFrames,
			StackSlotsPerFrame: vm.DefaultStackSlotsPerFrame,
		},
		Trace: TraceConfig{
			Level:  "off",
			Output: "-",
			Mode:   "stream",
			Format: "auto",
		},
	}
}

// Find walks up from startDir looking for loxmin.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest loxmin.toml above startDir, or the defaults
// when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("gc", "initial_threshold") && cfg.GC.InitialThreshold <= 0 {
		return Config{}, fmt.Errorf("%s: [gc].initial_threshold must be positive", path)
	}
	if meta.IsDefined("gc", "growth_factor") && cfg.GC.GrowthFactor < 2 {
		return Config{}, fmt.Errorf("%s: [gc].growth_factor must be at least 2", path)
	}
	if meta.IsDefined("vm", "max_frames") && cfg.VM.MaxFrames <= 0 {
		return Config{}, fmt.Errorf("%s: [vm].max_frames must be positive", path)
	}
	if meta.IsDefined("vm", "stack_slots_per_frame") && cfg.VM.StackSlotsPerFrame <= 0 {
		return Config{}, fmt.Errorf("%s: [vm].stack_slots_per_frame must be positive", path)
	}
	if _, err := cfg.TraceConfig(); err != nil {
		return Config{}, fmt.Errorf("%s: [trace]: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// VMOptions converts the [gc] and [vm] tables. Writers are left unset.
func (c Config) VMOptions() vm.Options {
	return vm.Options{
		StressGC:           c.GC.Stress,
		InitialGC:          c.GC.InitialThreshold,
		GrowthFactor:       c.GC.GrowthFactor,
		MaxFrames:          c.VM.MaxFrames,
		StackSlotsPerFrame: c.VM.StackSlotsPerFrame,
	}
}

// TraceConfig converts the [trace] table.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
	}, nil
}
