package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/example/go-layercheck/internal/engine"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// ParseDims parses a dimension list such as "7x5x3" or "7,5,3".
func ParseDims(raw string) ([]int64, error) {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == 'x' || r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("invalid dims %q: empty", raw)
	}

	dims := make([]int64, len(fields))
	for i, f := range fields {
		d, err := strconv.ParseInt(f, 10, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid dims %q: dimension %q must be a positive integer", raw, f)
		}

		dims[i] = d
	}

	return dims, nil
}

// FormatDims is the inverse of ParseDims.
func FormatDims(dims []int64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.FormatInt(d, 10)
	}

	return strings.Join(parts, "x")
}

// Validate checks values that Load cannot type-check.
func (c Config) Validate() error {
	if _, err := NormalizeBackend(c.Check.Backend); err != nil {
		return err
	}

	if _, err := ParseDims(c.Check.Dims); err != nil {
		return err
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if _, err := c.Check.CheckModes(); err != nil {
		return err
	}

	if c.Check.Samples <= 0 {
		return fmt.Errorf("check.samples must be > 0, got %d", c.Check.Samples)
	}

	if c.Check.MiniBatch <= 0 {
		return fmt.Errorf("check.mini_batch must be > 0, got %d", c.Check.MiniBatch)
	}

	if c.Check.Epochs < 0 {
		return fmt.Errorf("check.epochs must be >= 0, got %d", c.Check.Epochs)
	}

	if c.Check.Factor <= 0 {
		return fmt.Errorf("check.factor must be > 0, got %g", c.Check.Factor)
	}

	if c.Runtime.Workers < 1 {
		return fmt.Errorf("runtime.workers must be >= 1, got %d", c.Runtime.Workers)
	}

	return nil
}

// CheckModes parses Modes. At least one mode is required.
func (c CheckConfig) CheckModes() ([]engine.Mode, error) {
	modes, err := engine.ParseModes(c.Modes)
	if err != nil {
		return nil, fmt.Errorf("check.modes: %w", err)
	}

	if len(modes) == 0 {
		return nil, fmt.Errorf("check.modes must name at least one of train|validate|test")
	}

	return modes, nil
}
