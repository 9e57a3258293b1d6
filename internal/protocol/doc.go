// Package protocol implements the logship wire protocol primitives shared
// by the collector and the client: the handshake grammar constants, the
// incremental frame assemblers, and the protocol error kinds.
//
// # Wire grammar
//
// Every text message is a UTF-8 line terminated by '\n'. The handshake is
// a fixed three-step exchange:
//
//	client -> server: "HELLO " version "\n"
//	server -> client: "HELLO " version "\n"
//	client -> server: "IDENTIFY " json-object "\n"
//	server -> client: "OK\n"
//	client -> server: "LOG\n"
//	server -> client: "OK\n"
//
// After the handshake the client streams length-prefixed records: a 4-byte
// big-endian length header followed by that many payload bytes. A header of
// zero switches the connection into message mode, where the client may send
// "FORMAT " json-object "\n" (answered with "OK\n") or "QUIT\n" (closes the
// connection, no reply).
//
// The IDENTIFY object must contain the reserved "level" key; all remaining
// keys are forwarded verbatim to the record sink's constructor.
package protocol
