package protocol

import (
	"bytes"
	"unicode/utf8"
)

const lineTerm = '\n'

// LineAssembler incrementally accumulates chunks read from a transport
// into a newline-terminated UTF-8 line. It performs no I/O itself; the
// caller feeds it whatever a single read returned, of any size.
//
// The terminator must be the final byte of the chunk that carries it, and
// must be the only terminator in that chunk. Both rules guard against a
// peer that queued bytes beyond the single message the protocol expects
// at this point.
type LineAssembler struct {
	buf []byte
	max int
}

// NewLineAssembler returns an assembler that rejects lines longer than
// max bytes. A max of zero or less falls back to MaxLineLen.
func NewLineAssembler(max int) *LineAssembler {
	if max <= 0 {
		max = MaxLineLen
	}
	return &LineAssembler{max: max}
}

// Feed appends one read's worth of bytes. It returns the completed line
// (terminator included) and true once a terminator arrives, or ("", false)
// while the line is still incomplete. On a framing, encoding, or size
// violation it returns an error wrapping ErrProtocol; the assembler must
// not be reused after an error.
func (a *LineAssembler) Feed(chunk []byte) (string, bool, error) {
	a.buf = append(a.buf, chunk...)
	i := bytes.IndexByte(chunk, lineTerm)
	if i < 0 {
		if len(a.buf) > a.max {
			return "", false, ErrFrameTooLarge
		}
		return "", false, nil
	}
	if i != len(chunk)-1 {
		return "", false, ErrFraming
	}
	if !utf8.Valid(a.buf) {
		return "", false, ErrEncoding
	}
	line := string(a.buf)
	a.buf = nil
	return line, true, nil
}

// Pending reports how many bytes are buffered awaiting a terminator.
func (a *LineAssembler) Pending() int { return len(a.buf) }

// BlockAssembler accumulates chunks into a binary block of a fixed,
// caller-declared length. The caller is expected to cap each transport
// read at Remaining so a chunk never overshoots the block.
type BlockAssembler struct {
	buf       []byte
	remaining int
}

// Expect resets the assembler to collect exactly n more bytes.
func (a *BlockAssembler) Expect(n int) {
	a.buf = a.buf[:0]
	a.remaining = n
}

// Remaining reports how many bytes are still wanted.
func (a *BlockAssembler) Remaining() int { return a.remaining }

// Feed appends one read's worth of bytes and returns the full block and
// true once all expected bytes arrived, leaving the remaining counter at
// zero. Until then it returns (nil, false).
func (a *BlockAssembler) Feed(chunk []byte) ([]byte, bool) {
	a.buf = append(a.buf, chunk...)
	a.remaining -= len(chunk)
	if a.remaining > 0 {
		return nil, false
	}
	block := a.buf
	a.buf = nil
	return block, true
}
