// Package client implements the logship client: it dials a collector,
// performs the HELLO/IDENTIFY/LOG handshake, and then frames and
// transmits serialized log records.
//
// All I/O is blocking; each read of a server reply is bounded by the
// configured timeout. A Client is not safe for concurrent use; callers
// that log from multiple goroutines must serialize access, matching
// typical single-writer logging handler usage.
package client

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/logship/logship/internal/protocol"
	"github.com/logship/logship/internal/record"
)

// Record is the structured log record shipped to the collector.
type Record = record.Record

// Client is a connected, handshaken logship session.
type Client struct {
	nc    net.Conn
	codec record.Codec
	opts  options
}

// Dial connects to a collector, performs the handshake, and returns a
// client ready to send records. A handshake failure tears the transport
// down before returning.
func Dial(network, addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	nc, err := net.DialTimeout(network, addr, o.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, addr, err)
	}
	c := &Client{nc: nc, opts: o}
	if err := c.handshake(); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

// handshake mirrors the server grammar from the client role:
// HELLO/HELLO, IDENTIFY/OK, LOG/OK.
func (c *Client) handshake() error {
	if err := c.sendText(protocol.VerbHello + " " + protocol.Version + "\n"); err != nil {
		return err
	}
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, protocol.VerbHello+" ") {
		return protocol.Violationf("'HELLO <version>'", line)
	}
	if line[len(protocol.VerbHello)+1:] != protocol.Version+"\n" {
		return fmt.Errorf("%w: server speaks %q",
			protocol.ErrVersionMismatch, strings.TrimSuffix(line[len(protocol.VerbHello)+1:], "\n"))
	}

	params := map[string]any{protocol.LevelKey: int(c.opts.level)}
	for k, v := range c.opts.sinkParams {
		params[k] = v
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal identify params: %w", err)
	}
	if err := c.sendText(protocol.VerbIdentify + " " + string(body) + "\n"); err != nil {
		return err
	}
	if err := c.expectOK(); err != nil {
		return err
	}

	if err := c.sendText(protocol.VerbLog + "\n"); err != nil {
		return err
	}
	return c.expectOK()
}

// Send encodes one record and transmits it as a length-prefixed frame.
func (c *Client) Send(rec Record) error {
	blob, err := c.codec.Encode(rec)
	if err != nil {
		return err
	}
	var hdr [protocol.HeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(blob)))
	if _, err := c.nc.Write(append(hdr[:], blob...)); err != nil {
		return fmt.Errorf("send record: %w", err)
	}
	return nil
}

// SetFormat sends a zero-length header followed by a FORMAT message,
// propagating formatter parameters to the collector's sink. Empty
// arguments are sent as JSON null, meaning "use the default". The
// collector stays in message mode afterwards, so this is typically the
// last exchange before Quit.
func (c *Client) SetFormat(format, datefmt, style string) error {
	params := map[string]any{
		"fmt":     nullable(format),
		"datefmt": nullable(datefmt),
		"style":   nullable(style),
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal format params: %w", err)
	}
	if err := c.enterMessaging(); err != nil {
		return err
	}
	if err := c.sendText(protocol.VerbFormat + " " + string(body) + "\n"); err != nil {
		return err
	}
	return c.expectOK()
}

// Quit sends a zero-length header followed by QUIT and closes the
// transport. The collector closes without replying.
func (c *Client) Quit() error {
	if err := c.enterMessaging(); err != nil {
		return err
	}
	if err := c.sendText(protocol.VerbQuit + "\n"); err != nil {
		return err
	}
	return c.nc.Close()
}

// QuitAfterFormat sends QUIT without a preceding zero-length header, for
// use after SetFormat has already switched the collector into message
// mode.
func (c *Client) QuitAfterFormat() error {
	if err := c.sendText(protocol.VerbQuit + "\n"); err != nil {
		return err
	}
	return c.nc.Close()
}

// Close tears down the transport without the QUIT exchange.
func (c *Client) Close() error {
	return c.nc.Close()
}

// enterMessaging sends the zero-length header that switches the
// collector from record ingestion into message mode.
func (c *Client) enterMessaging() error {
	var zero [protocol.HeaderLen]byte
	if _, err := c.nc.Write(zero[:]); err != nil {
		return fmt.Errorf("send zero header: %w", err)
	}
	return nil
}

func (c *Client) sendText(msg string) error {
	if _, err := c.nc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("send %q: %w", strings.TrimSuffix(msg, "\n"), err)
	}
	return nil
}

func (c *Client) expectOK() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if line != protocol.ReplyOK {
		return protocol.Violationf("'OK'", line)
	}
	return nil
}

// readLine reads one reply line. The whole call is bounded by the
// configured timeout, the accumulated bytes by the maximum line length,
// and the assembled line must be UTF-8 with nothing queued beyond its
// terminator. A deadline expiry surfaces as ErrTimeout, distinct from
// the protocol violations.
func (c *Client) readLine() (string, error) {
	asm := protocol.NewLineAssembler(c.opts.maxLine)
	if c.opts.timeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.opts.timeout)); err != nil {
			return "", fmt.Errorf("set read deadline: %w", err)
		}
		defer c.nc.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, readChunk)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			line, ok, aerr := asm.Feed(buf[:n])
			if aerr != nil {
				return "", aerr
			}
			if ok {
				return line, nil
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "", protocol.ErrTimeout
			}
			return "", fmt.Errorf("read reply: %w", err)
		}
	}
}

// readChunk caps a single reply read.
const readChunk = 1024

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
