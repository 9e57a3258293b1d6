// Package sink provides the rotating file implementation of
// ports.RecordSink, constructed from IDENTIFY's pass-through parameters.
package sink

import (
	"fmt"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/logship/logship/internal/ports"
	"github.com/logship/logship/internal/record"
)

// IDENTIFY pass-through keys understood by the file sink.
const (
	paramFilename    = "filename"
	paramMaxBytes    = "max_bytes"
	paramBackupCount = "backup_count"
)

// FileSink writes formatted records to a size-rotated file, one line per
// record, dropping records below its minimum level.
type FileSink struct {
	mu        sync.Mutex
	level     record.Level
	formatter ports.RecordFormatter
	out       *lumberjack.Logger
}

var _ ports.RecordSink = (*FileSink)(nil)

// Factory builds FileSinks rooted at Dir. Relative filenames from
// IDENTIFY are resolved under Dir so a peer cannot name paths outside it.
type Factory struct {
	Dir string

	mu      sync.Mutex
	format  string
	datefmt string
	style   string
}

var _ ports.SinkFactory = (*Factory)(nil)

// SetFormatDefaults replaces the formatter parameters seeding new sinks.
// Safe to call while connections are being accepted; existing sinks keep
// their formatter until a FORMAT message replaces it.
func (f *Factory) SetFormatDefaults(format, datefmt, style string) error {
	if _, err := record.NewFormatter(format, datefmt, style); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.format, f.datefmt, f.style = format, datefmt, style
	return nil
}

func (f *Factory) formatDefaults() (string, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format, f.datefmt, f.style
}

// New constructs a sink from IDENTIFY parameters. The "filename" key is
// mandatory; "max_bytes" and "backup_count" tune rotation. Any other key
// is a construction error, mirroring the strictness the protocol demands.
func (f *Factory) New(params map[string]any) (ports.RecordSink, error) {
	var (
		filename    string
		maxBytes    int64
		backupCount int
	)
	for key, val := range params {
		switch key {
		case paramFilename:
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: want string, got %T", key, val)
			}
			filename = s
		case paramMaxBytes:
			n, err := intParam(key, val)
			if err != nil {
				return nil, err
			}
			maxBytes = int64(n)
		case paramBackupCount:
			n, err := intParam(key, val)
			if err != nil {
				return nil, err
			}
			backupCount = n
		default:
			return nil, fmt.Errorf("unknown sink parameter %q", key)
		}
	}
	if filename == "" {
		return nil, fmt.Errorf("parameter %q is required", paramFilename)
	}
	path := filepath.Clean(filename)
	if f.Dir != "" {
		path = filepath.Join(f.Dir, filepath.Base(path))
	}

	// lumberjack rotates on whole megabytes; round the requested byte
	// budget up so a small max_bytes still rotates.
	maxSizeMB := int(maxBytes >> 20)
	if maxBytes > 0 && maxSizeMB == 0 {
		maxSizeMB = 1
	}

	fmtr, err := record.NewFormatter(f.formatDefaults())
	if err != nil {
		return nil, err
	}
	return &FileSink{
		level:     record.LevelDebug,
		formatter: fmtr,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: backupCount,
		},
	}, nil
}

// intParam coerces a numeric IDENTIFY value. JSON decoding hands numbers
// over as float64.
func intParam(key string, val any) (int, error) {
	switch n := val.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q: want number, got %T", key, val)
	}
}

// Emit writes one formatted record, dropping it if below the sink level.
func (s *FileSink) Emit(rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Level < s.level {
		return nil
	}
	line := s.formatter.Format(rec)
	if _, err := s.out.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("sink write: %w", err)
	}
	return nil
}

// SetLevel replaces the minimum severity level.
func (s *FileSink) SetLevel(lvl record.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = lvl
}

// SetFormatter replaces the active formatter.
func (s *FileSink) SetFormatter(f ports.RecordFormatter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formatter = f
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
