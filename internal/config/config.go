// Package config manages sfcproxy configuration using koanf/v2.
//
// Interface names are mandatory and supplied as CLI flags (cmd/sfcproxy);
// everything else is ambient and may come from a YAML file, environment
// variables, or built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the ambient sfcproxy configuration. Interface names are not
// part of it: cmd/sfcproxy takes them from CLI flags, not from this loader.
type Config struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Buffers BuffersConfig `koanf:"buffers"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// BuffersConfig holds the fixed per-pipeline receive buffer size (spec.md
// §7: one fixed buffer per pipeline, no pooling).
type BuffersConfig struct {
	// FrameSize is the byte size of each pipeline's receive buffer. Must
	// be large enough for the largest encapsulated frame the proxy will
	// observe (outer headers + inner frame + jumbo payload headroom).
	FrameSize int `koanf:"frame_size"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Buffers: BuffersConfig{
			FrameSize: 9216,
		},
	}
}

// envPrefix is the environment variable prefix for sfcproxy configuration.
// Variables are named SFCPROXY_<section>_<key>, e.g., SFCPROXY_METRICS_ADDR.
const envPrefix = "SFCPROXY_"

// Load reads configuration from a YAML file at path (if non-empty),
// overlays environment variable overrides (SFCPROXY_ prefix), and merges
// on top of DefaultConfig(). Missing fields inherit defaults. A missing
// file at a non-empty path is an error; an empty path skips the file
// layer entirely (ambient config may come from env/defaults alone).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper transforms SFCPROXY_METRICS_ADDR -> metrics.addr. Only the
// first underscore separates section from key, so keys that contain an
// underscore keep it (SFCPROXY_BUFFERS_FRAME_SIZE -> buffers.frame_size).
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"metrics.addr":       defaults.Metrics.Addr,
		"metrics.path":       defaults.Metrics.Path,
		"log.level":          defaults.Log.Level,
		"log.format":         defaults.Log.Format,
		"buffers.frame_size": defaults.Buffers.FrameSize,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// Validation errors.
var (
	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")

	// ErrInvalidFrameSize indicates the configured frame buffer is too
	// small to hold even the stacked header chain.
	ErrInvalidFrameSize = errors.New("buffers.frame_size must be large enough for the full header stack")
)

// minFrameSize is the smallest frame_size that can hold every header
// layer in the stacked chain (spec.md §4.2) with zero payload.
const minFrameSize = 14 + 20 + 8 + 8 + 14 + 24 + 14 + 20 + 20

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}

	if cfg.Buffers.FrameSize < minFrameSize {
		return fmt.Errorf("frame_size %d below minimum %d: %w", cfg.Buffers.FrameSize, minFrameSize, ErrInvalidFrameSize)
	}

	return nil
}

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
