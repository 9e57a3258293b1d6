// Package cliconfig layers the collector daemon's configuration from
// defaults, a TOML file, LOGSHIP_* environment variables, and CLI flags,
// in increasing order of precedence.
package cliconfig

import (
	"fmt"
	"strconv"

	"github.com/logship/logship/internal/protocol"
)

// DefaultAddr is the default unix socket path the collector listens on.
const DefaultAddr = "/tmp/logship.sock"

// Config holds CLI configuration for the logshipd collector.
type Config struct {
	// Network is the listener network: "unix" or "tcp".
	Network string

	// Addr is the socket path (unix) or host:port (tcp).
	Addr string

	// SinkDir roots the files that IDENTIFY parameters may name.
	SinkDir string

	// MaxLineBytes bounds an accumulating protocol text line.
	MaxLineBytes int

	// MaxRecordBytes bounds a record payload.
	MaxRecordBytes int

	// LogLevel filters the daemon's own structured logging.
	LogLevel string

	// Format, DateFormat, and Style seed the formatter of newly
	// constructed sinks until a FORMAT message overrides it.
	Format     string
	DateFormat string
	Style      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Network:        "unix",
		Addr:           DefaultAddr,
		SinkDir:        ".",
		MaxLineBytes:   protocol.MaxLineLen,
		MaxRecordBytes: protocol.MaxRecordLen,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("network must be unix or tcp, got %q", c.Network)
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("max line bytes must be positive")
	}
	if c.MaxRecordBytes <= 0 {
		return fmt.Errorf("max record bytes must be positive")
	}
	return nil
}

// configSetter applies configuration values while respecting flag
// precedence: a value is skipped when its flag was explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses and sets an int value. Used for environment
// variables, which arrive as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
