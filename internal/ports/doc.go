// Package ports defines the interfaces that connect the wire protocol
// engine to its external collaborators.
//
// The connection state machine in internal/server depends only on these
// interfaces; concrete implementations live elsewhere (internal/sink for
// the rotating file sink, internal/record for the codec and formatter).
// Tests substitute in-memory implementations.
//
//   - [RecordSink]: consumes decoded records, enforces a minimum level
//   - [SinkFactory]: builds a sink from IDENTIFY's pass-through params
//   - [RecordFormatter]: renders a record into a text line
//   - [RecordCodec]: decodes payload blobs into records
package ports
