package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for TOML decoding.
type FileConfig struct {
	Network        string `toml:"network"`
	Addr           string `toml:"addr"`
	SinkDir        string `toml:"sink_dir"`
	MaxLineBytes   int    `toml:"max_line_bytes"`
	MaxRecordBytes int    `toml:"max_record_bytes"`
	LogLevel       string `toml:"log_level"`
	Format         string `toml:"format"`
	DateFormat     string `toml:"date_format"`
	Style          string `toml:"style"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.logship/config.toml if the user home
// directory is accessible, else "".
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to cfg, skipping fields whose
// flags were explicitly set.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("network", fc.Network, &cfg.Network)
	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("sink-dir", fc.SinkDir, &cfg.SinkDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("format", fc.Format, &cfg.Format)
	s.setString("date-format", fc.DateFormat, &cfg.DateFormat)
	s.setString("style", fc.Style, &cfg.Style)

	s.setInt("max-line-bytes", fc.MaxLineBytes, &cfg.MaxLineBytes)
	s.setInt("max-record-bytes", fc.MaxRecordBytes, &cfg.MaxRecordBytes)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
