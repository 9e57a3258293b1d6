package client

import "github.com/logship/logship/internal/protocol"

// Error kinds surfaced by a client, re-exported so callers can use
// errors.Is without reaching into internal packages.
var (
	// ErrProtocol is returned when the server sent an invalid reply.
	ErrProtocol = protocol.ErrProtocol

	// ErrVersionMismatch is returned when the server speaks an
	// unsupported protocol version.
	ErrVersionMismatch = protocol.ErrVersionMismatch

	// ErrTimeout is returned when no reply arrived within the configured
	// deadline. The caller may retry at a higher level; the client never
	// retries internally.
	ErrTimeout = protocol.ErrTimeout
)
