package client

import (
	"time"

	"github.com/logship/logship/internal/protocol"
	"github.com/logship/logship/internal/record"
)

// Level re-exports the record severity scale for callers configuring a
// client.
type Level = record.Level

// Severity levels, lowest to highest.
const (
	LevelDebug    = record.LevelDebug
	LevelInfo     = record.LevelInfo
	LevelWarn     = record.LevelWarn
	LevelError    = record.LevelError
	LevelCritical = record.LevelCritical
)

// ParseLevel maps a level name ("debug", "warning", ...) to its numeric
// value. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	return record.ParseLevel(name)
}

type options struct {
	timeout    time.Duration
	level      Level
	maxLine    int
	sinkParams map[string]any
}

func defaultOptions() options {
	return options{
		timeout:    5 * time.Second,
		level:      LevelInfo,
		maxLine:    protocol.MaxLineLen,
		sinkParams: map[string]any{},
	}
}

// Option customizes a Client before the handshake runs.
type Option func(*options)

// WithTimeout bounds each read of a server reply. Zero disables the
// deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLevel sets the minimum severity the remote sink will accept,
// carried in IDENTIFY's reserved level key.
func WithLevel(lvl Level) Option {
	return func(o *options) { o.level = lvl }
}

// WithMaxLineLen bounds an accumulating reply line.
func WithMaxLineLen(n int) Option {
	return func(o *options) { o.maxLine = n }
}

// WithSinkParam forwards one opaque key to the remote sink constructor.
// The level key is reserved and cannot be overridden here.
func WithSinkParam(key string, value any) Option {
	return func(o *options) {
		if key == protocol.LevelKey {
			return
		}
		o.sinkParams[key] = value
	}
}

// WithSinkParams forwards a set of opaque sink constructor keys.
func WithSinkParams(params map[string]any) Option {
	return func(o *options) {
		for k, v := range params {
			if k == protocol.LevelKey {
				continue
			}
			o.sinkParams[k] = v
		}
	}
}
