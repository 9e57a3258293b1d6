// Package record defines the structured log record shipped over the wire,
// the codec that turns it into a payload blob, and the formatter that
// renders it into text at the sink.
package record

import "time"

// Level is the numeric severity of a record. The values follow the
// conventional 10..50 logging scale so IDENTIFY's level key round-trips
// unchanged.
type Level int

// Severity levels, lowest to highest.
const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarn     Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// String returns the conventional upper-case level name. Intermediate
// values render as the name of the next level below them.
func (l Level) String() string {
	switch {
	case l >= LevelCritical:
		return "CRITICAL"
	case l >= LevelError:
		return "ERROR"
	case l >= LevelWarn:
		return "WARNING"
	case l >= LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// ParseLevel maps a level name to its numeric value. Unknown names map to
// LevelInfo.
func ParseLevel(name string) Level {
	switch name {
	case "debug", "DEBUG":
		return LevelDebug
	case "info", "INFO":
		return LevelInfo
	case "warn", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	case "critical", "CRITICAL":
		return LevelCritical
	default:
		return LevelInfo
	}
}

// Record is one structured log record.
type Record struct {
	// Name identifies the logger that produced the record.
	Name string `json:"name"`

	// Level is the record severity.
	Level Level `json:"level"`

	// Message is the rendered log message.
	Message string `json:"msg"`

	// Time is when the record was created.
	Time time.Time `json:"time"`

	// Fields carries any extra structured values attached to the record.
	Fields map[string]any `json:"fields,omitempty"`
}
