// Package config provides configuration management for grepconsole.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"grepconsole/src/grep"
)

const (
	// DefaultMaxLineLength is the number of leading runes of a line that are matched.
	DefaultMaxLineLength = 1000

	// DefaultMaxProcessingTime is the matching budget for a single line.
	DefaultMaxProcessingTime = time.Second

	// DefaultHistoryLines is the number of source console lines kept for replay.
	DefaultHistoryLines = 10000
)

// ErrInvalidValue is returned when an environment variable cannot be parsed.
var ErrInvalidValue = errors.New("invalid configuration value")

// Config holds the application configuration.
type Config struct {
	// MaxLineLength limits how many runes of each line are matched (0 = unlimited).
	MaxLineLength int
	// MaxProcessingTime bounds matching of a single line (0 = unlimited).
	MaxProcessingTime time.Duration
	// HistoryLines bounds the source console history replayed into new grep consoles.
	HistoryLines int
	// RedpandaBrokers enables distributed mode when set.
	RedpandaBrokers []string
	// DatabaseURL selects the Postgres pin store; the in-memory store is used when empty.
	DatabaseURL string
	// Verbose enables debug logging.
	Verbose bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MaxLineLength:     DefaultMaxLineLength,
		MaxProcessingTime: DefaultMaxProcessingTime,
		HistoryLines:      DefaultHistoryLines,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}

	var err error
	if cfg.MaxLineLength, err = intFromEnv("GREPCONSOLE_MAX_LINE_LENGTH", cfg.MaxLineLength); err != nil {
		return nil, err
	}
	if cfg.MaxProcessingTime, err = durationFromEnv("GREPCONSOLE_MAX_PROCESSING_TIME", cfg.MaxProcessingTime); err != nil {
		return nil, err
	}
	if cfg.HistoryLines, err = intFromEnv("GREPCONSOLE_HISTORY_LINES", cfg.HistoryLines); err != nil {
		return nil, err
	}
	if v := os.Getenv("GREPCONSOLE_VERBOSE"); v != "" {
		cfg.Verbose, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: GREPCONSOLE_VERBOSE=%q", ErrInvalidValue, v)
		}
	}
	cfg.RedpandaBrokers = splitList(os.Getenv("REDPANDA_BROKERS"))

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// DistributedMode reports whether a Redpanda cluster is configured.
func (c *Config) DistributedMode() bool {
	return len(c.RedpandaBrokers) > 0
}

// Profile returns the default matching profile.
func (c *Config) Profile() grep.Profile {
	return grep.Profile{
		Name:              "default",
		MaxLineLength:     c.MaxLineLength,
		MaxProcessingTime: c.MaxProcessingTime,
	}
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return n, nil
}

// durationFromEnv accepts Go durations ("250ms") and bare milliseconds ("250").
func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
