package ports

import "github.com/logship/logship/internal/record"

// RecordSink consumes decoded log records on behalf of one connection.
// A sink is constructed when IDENTIFY succeeds and lives exactly as long
// as the connection that bound it.
type RecordSink interface {
	// Emit persists one record. Records below the sink's minimum level
	// are silently dropped.
	Emit(rec record.Record) error

	// SetLevel replaces the sink's minimum severity level.
	SetLevel(lvl record.Level)

	// SetFormatter replaces the formatter used to render records.
	SetFormatter(f RecordFormatter)

	// Close releases the sink's resources.
	Close() error
}

// SinkFactory constructs a sink from IDENTIFY's pass-through parameters.
// The reserved level key has already been removed from params when the
// factory is invoked. A factory must reject parameters it does not
// understand; the collector reports the rejection to the peer as a
// protocol violation.
type SinkFactory interface {
	New(params map[string]any) (RecordSink, error)
}

// RecordFormatter renders a record into a text line, without the
// trailing newline.
type RecordFormatter interface {
	Format(rec record.Record) string
}

// RecordCodec decodes the opaque payload blob of a length-prefixed frame
// into a record. A decode failure is fatal to the connection.
type RecordCodec interface {
	Decode(blob []byte) (record.Record, error)
}
