package cliconfig

import "os"

// Environment variable names. Environment overrides the config file but
// loses to explicitly set flags.
const (
	EnvNetwork        = "LOGSHIP_NETWORK"
	EnvAddr           = "LOGSHIP_ADDR"
	EnvSinkDir        = "LOGSHIP_SINK_DIR"
	EnvMaxLineBytes   = "LOGSHIP_MAX_LINE_BYTES"
	EnvMaxRecordBytes = "LOGSHIP_MAX_RECORD_BYTES"
	EnvLogLevel       = "LOGSHIP_LOG_LEVEL"
)

// ApplyEnvConfig applies LOGSHIP_* environment variables to cfg,
// skipping fields whose flags were explicitly set.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("network", os.Getenv(EnvNetwork), &cfg.Network)
	s.setString("addr", os.Getenv(EnvAddr), &cfg.Addr)
	s.setString("sink-dir", os.Getenv(EnvSinkDir), &cfg.SinkDir)
	s.setString("log-level", os.Getenv(EnvLogLevel), &cfg.LogLevel)

	if err := s.setIntFromString("max-line-bytes", os.Getenv(EnvMaxLineBytes), &cfg.MaxLineBytes); err != nil {
		return err
	}
	return s.setIntFromString("max-record-bytes", os.Getenv(EnvMaxRecordBytes), &cfg.MaxRecordBytes)
}
