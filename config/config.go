// Package config handles the rotraj configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rmera/rotraj/pivot"
	"github.com/rmera/rotraj/trajstat"
)

// Config represents the rotraj configuration.
type Config struct {
	// Timesteps is the fixed number of intervals of every trajectory. 0 means
	// each trajectory is read with the interval count it declares.
	Timesteps int `toml:"timesteps"`

	// PressureLevels labels the clusters in Hovmoller diagrams, in ascending order of cluster id (hPa).
	PressureLevels []float64 `toml:"pressure_levels"`

	// SegmentCeiling is the pressure (hPa) that ends the part of a trajectory drawn on a map.
	SegmentCeiling float64 `toml:"segment_ceiling"`

	// TrackInterval is the interval between the release times drawn on a map, as a Go duration.
	TrackInterval string `toml:"track_interval"`

	// Compression is the codec for stf exports: zstd, gzip, lzw, flate or lz4.
	Compression string `toml:"compression"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// OutputDir is where output files are written, if not given in the command line.
	OutputDir string `toml:"output_dir"`
}

// The extension of stf files for each codec.
var extensions = map[string]string{
	"zstd":  "stf",
	"gzip":  "stfz",
	"lzw":   "stfl",
	"flate": "stfr",
	"lz4":   "stf4",
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		PressureLevels: append([]float64(nil), pivot.DefaultLevels...),
		SegmentCeiling: trajstat.DefaultCeiling,
		TrackInterval:  "15m",
		Compression:    "zstd",
		LogLevel:       "info",
	}
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()
	if configPath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path. Keys missing from the
// file keep their default values. Unknown keys are an error.
func LoadFrom(path string) (*Config, error) {
	config := Default()
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// DefaultPath returns the default config file path: $ROTRAJ_CONFIG if set,
// else rotraj/config.toml under $XDG_CONFIG_HOME or ~/.config.
// It returns an empty string if no home directory can be found.
func DefaultPath() string {
	if p := os.Getenv("ROTRAJ_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rotraj", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "rotraj", "config.toml")
}

// Validate checks that the values can be used.
func (c *Config) Validate() error {
	if c.Timesteps < 0 {
		return fmt.Errorf("timesteps must not be negative, got %d", c.Timesteps)
	}
	if len(c.PressureLevels) == 0 {
		return fmt.Errorf("pressure_levels must not be empty")
	}
	for _, p := range c.PressureLevels {
		if !(p > 0) {
			return fmt.Errorf("pressure levels must be positive, got %v", p)
		}
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.StfExtension(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Interval returns the track interval as a duration. It must be at least one minute.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.TrackInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid track_interval %q: %w", c.TrackInterval, err)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("track_interval must be at least one minute, got %s", d)
	}
	return d, nil
}

// StfExtension returns the extension of stf files for the configured codec.
func (c *Config) StfExtension() (string, error) {
	ext, ok := extensions[strings.ToLower(c.Compression)]
	if !ok {
		return "", fmt.Errorf("unknown compression %q", c.Compression)
	}
	return ext, nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
