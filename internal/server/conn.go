package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/logship/logship/internal/ports"
	"github.com/logship/logship/internal/protocol"
	"github.com/logship/logship/internal/record"
)

// connState is the sealed set of per-connection protocol states. Exactly
// one is active at any time; it determines which frame shape the
// connection expects next and which handler consumes it.
//
//	Welcoming --> Identifying --> Waiting --> LogHeader <--> Logging
//	                                              |
//	                                              v
//	                                          Messaging
//
// LogHeader moves to Logging on a nonzero length header and back after
// the record body; a zero header moves to Messaging. Every state can
// also move to Closed.
type connState int

const (
	stateWelcoming connState = iota
	stateIdentifying
	stateWaiting
	stateLogHeader
	stateLogging
	stateMessaging
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateWelcoming:
		return "welcoming"
	case stateIdentifying:
		return "identifying"
	case stateWaiting:
		return "waiting"
	case stateLogHeader:
		return "log-header"
	case stateLogging:
		return "logging"
	case stateMessaging:
		return "messaging"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("connState(%d)", int(s))
}

// readChunk caps a single transport read in text-mode states. Binary
// states cap reads at the bytes still owed to the current block instead.
const readChunk = 1024

// Conn owns one accepted connection: its state, its read and write
// buffers, and the record sink bound at IDENTIFY time. Nothing here is
// shared with other connections.
type Conn struct {
	nc        net.Conn
	factory   ports.SinkFactory
	codec     ports.RecordCodec
	maxRecord int

	state connState
	line  *protocol.LineAssembler
	block protocol.BlockAssembler
	sink  ports.RecordSink
	pendw []byte
}

func newConn(nc net.Conn, factory ports.SinkFactory, codec ports.RecordCodec, maxLine, maxRecord int) *Conn {
	if maxRecord <= 0 {
		maxRecord = protocol.MaxRecordLen
	}
	return &Conn{
		nc:        nc,
		factory:   factory,
		codec:     codec,
		maxRecord: maxRecord,
		state:     stateWelcoming,
		line:      protocol.NewLineAssembler(maxLine),
	}
}

// serve runs the connection until the peer quits, disconnects, or
// violates the protocol. The exchange is strictly half-duplex: a pending
// reply is flushed in full before the next read.
func (c *Conn) serve() error {
	buf := make([]byte, readChunk)
	for c.state != stateClosed {
		if len(c.pendw) > 0 {
			if _, err := c.nc.Write(c.pendw); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
			c.pendw = nil
		}
		n := len(buf)
		if c.state == stateLogHeader || c.state == stateLogging {
			if r := c.block.Remaining(); r < n {
				n = r
			}
		}
		rn, rerr := c.nc.Read(buf[:n])
		if rn > 0 {
			if err := c.feed(buf[:rn]); err != nil {
				return err
			}
		}
		if rerr != nil {
			if c.state == stateClosed {
				return nil
			}
			return rerr
		}
	}
	return nil
}

// feed advances the state machine with one read's worth of bytes. A
// handler that cannot complete its frame simply buffers and returns nil;
// it resumes on the next read.
func (c *Conn) feed(chunk []byte) error {
	switch c.state {
	case stateWelcoming:
		return c.welcome(chunk)
	case stateIdentifying:
		return c.identify(chunk)
	case stateWaiting:
		return c.confirmLog(chunk)
	case stateLogHeader:
		return c.readHeader(chunk)
	case stateLogging:
		return c.readRecord(chunk)
	case stateMessaging:
		return c.readControl(chunk)
	case stateClosed:
	}
	// Bytes arriving after QUIT are discarded.
	return nil
}

func (c *Conn) reply(msg string) {
	c.pendw = []byte(msg)
}

// enterLogHeader arms the block assembler for the next 4-byte length
// header. Entering this state always resets the expected count,
// regardless of where the connection came from.
func (c *Conn) enterLogHeader() {
	c.block.Expect(protocol.HeaderLen)
	c.state = stateLogHeader
}

func (c *Conn) welcome(chunk []byte) error {
	line, ok, err := c.line.Feed(chunk)
	if err != nil || !ok {
		return err
	}
	verb, _, _ := strings.Cut(line, " ")
	if verb != protocol.VerbHello {
		return protocol.Violationf("'HELLO <version>'", line)
	}
	// The claimed client version is ignored; the reply always carries
	// the server's own version and the client enforces equality.
	c.reply(protocol.VerbHello + " " + protocol.Version + "\n")
	c.state = stateIdentifying
	return nil
}

func (c *Conn) identify(chunk []byte) error {
	line, ok, err := c.line.Feed(chunk)
	if err != nil || !ok {
		return err
	}
	verb, rest, found := strings.Cut(line, " ")
	if verb != protocol.VerbIdentify || !found {
		return protocol.Violationf("'IDENTIFY <json>'", line)
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(rest), &params); err != nil {
		return protocol.Violationf("a JSON object", strings.TrimSuffix(rest, "\n"))
	}
	lvlVal, ok := params[protocol.LevelKey]
	if !ok {
		return protocol.Violationf("a 'level' key", rest)
	}
	delete(params, protocol.LevelKey)
	lvl, ok := lvlVal.(float64)
	if !ok {
		return protocol.Violationf("a numeric 'level'", lvlVal)
	}
	sink, err := c.factory.New(params)
	if err != nil {
		return fmt.Errorf("%w: sink parameters: %v", protocol.ErrProtocol, err)
	}
	sink.SetLevel(record.Level(lvl))
	c.sink = sink
	c.reply(protocol.ReplyOK)
	c.state = stateWaiting
	return nil
}

func (c *Conn) confirmLog(chunk []byte) error {
	line, ok, err := c.line.Feed(chunk)
	if err != nil || !ok {
		return err
	}
	if line != protocol.VerbLog+"\n" {
		return protocol.Violationf("'LOG'", line)
	}
	c.reply(protocol.ReplyOK)
	c.enterLogHeader()
	return nil
}

func (c *Conn) readHeader(chunk []byte) error {
	block, done := c.block.Feed(chunk)
	if !done {
		return nil
	}
	length := binary.BigEndian.Uint32(block)
	if length == 0 {
		// Zero length switches to message mode; no reply is sent.
		c.state = stateMessaging
		return nil
	}
	if int64(length) > int64(c.maxRecord) {
		return fmt.Errorf("%w: record length %d exceeds limit %d",
			protocol.ErrProtocol, length, c.maxRecord)
	}
	c.block.Expect(int(length))
	c.state = stateLogging
	return nil
}

func (c *Conn) readRecord(chunk []byte) error {
	block, done := c.block.Feed(chunk)
	if !done {
		return nil
	}
	c.enterLogHeader()
	rec, err := c.codec.Decode(block)
	if err != nil {
		return fmt.Errorf("%w: record payload: %v", protocol.ErrProtocol, err)
	}
	if err := c.sink.Emit(rec); err != nil {
		return fmt.Errorf("emit record: %w", err)
	}
	return nil
}

func (c *Conn) readControl(chunk []byte) error {
	line, ok, err := c.line.Feed(chunk)
	if err != nil || !ok {
		return err
	}
	if line == protocol.VerbQuit+"\n" {
		// QUIT closes without a reply.
		c.state = stateClosed
		return nil
	}
	verb, rest, found := strings.Cut(line, " ")
	if verb != protocol.VerbFormat || !found {
		return protocol.Violationf("one of 'FORMAT' or 'QUIT'", line)
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(rest), &params); err != nil || params == nil {
		return protocol.Violationf("a JSON object", strings.TrimSuffix(rest, "\n"))
	}
	f, err := formatterFromParams(params)
	if err != nil {
		return fmt.Errorf("%w: formatter parameters: %v", protocol.ErrProtocol, err)
	}
	c.sink.SetFormatter(f)
	c.reply(protocol.ReplyOK)
	return nil
}

// formatterFromParams builds a formatter from a FORMAT message body.
// Recognized keys are fmt, datefmt, and style; anything else is an
// error, as is a non-string value. JSON null means "use the default".
func formatterFromParams(params map[string]any) (*record.Formatter, error) {
	var format, datefmt, style string
	for key, val := range params {
		var dst *string
		switch key {
		case "fmt":
			dst = &format
		case "datefmt":
			dst = &datefmt
		case "style":
			dst = &style
		default:
			return nil, fmt.Errorf("unknown formatter parameter %q", key)
		}
		if val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("formatter parameter %q: want string, got %T", key, val)
		}
		*dst = s
	}
	return record.NewFormatter(format, datefmt, style)
}

// close tears down the transport and the bound sink, discarding any
// buffered state.
func (c *Conn) close() {
	c.state = stateClosed
	c.pendw = nil
	_ = c.nc.Close()
	if c.sink != nil {
		_ = c.sink.Close()
		c.sink = nil
	}
}
