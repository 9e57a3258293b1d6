package protocol

import (
	"errors"
	"fmt"
)

// Protocol errors. All framing, encoding, and sequencing faults wrap
// ErrProtocol so callers can check the whole family with errors.Is; a
// protocol error is always fatal to the connection that raised it.
var (
	// ErrProtocol is returned when the peer sent a syntactically or
	// sequentially invalid message.
	ErrProtocol = errors.New("logship: protocol violation")

	// ErrVersionMismatch is returned when the peer advertises a protocol
	// version this implementation does not support.
	ErrVersionMismatch = errors.New("logship: unsupported protocol version")

	// ErrTimeout is returned by the client when no reply arrived within
	// the configured deadline. Distinct from ErrProtocol; the caller may
	// retry at a higher level.
	ErrTimeout = errors.New("logship: timed out awaiting reply")

	// ErrFraming is returned when bytes follow a line terminator where a
	// single line was expected.
	ErrFraming = fmt.Errorf("%w: bytes beyond line terminator", ErrProtocol)

	// ErrEncoding is returned when an assembled line is not valid UTF-8.
	ErrEncoding = fmt.Errorf("%w: line is not valid UTF-8", ErrProtocol)

	// ErrFrameTooLarge is returned when an accumulating line exceeds the
	// assembler's byte limit before a terminator arrives.
	ErrFrameTooLarge = fmt.Errorf("%w: line exceeds maximum length", ErrProtocol)
)

// Violationf builds a ProtocolError describing what was expected and what
// the peer actually sent.
func Violationf(expected string, got any) error {
	return fmt.Errorf("%w: expected %s, got %q", ErrProtocol, expected, fmt.Sprint(got))
}
