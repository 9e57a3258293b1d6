package server

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/logship/logship/internal/ports"
	"github.com/logship/logship/internal/protocol"
	"github.com/logship/logship/internal/record"
)

// memSink records emitted records in memory.
type memSink struct {
	mu     sync.Mutex
	level  record.Level
	fmtr   ports.RecordFormatter
	recs   []record.Record
	closed bool
}

func (s *memSink) Emit(rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Level >= s.level {
		s.recs = append(s.recs, rec)
	}
	return nil
}

func (s *memSink) SetLevel(lvl record.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = lvl
}

func (s *memSink) SetFormatter(f ports.RecordFormatter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fmtr = f
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) records() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Record(nil), s.recs...)
}

func (s *memSink) formatter() ports.RecordFormatter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fmtr
}

// memFactory hands out memSinks, optionally failing construction.
type memFactory struct {
	mu     sync.Mutex
	err    error
	params map[string]any
	sink   *memSink
}

func (f *memFactory) New(params map[string]any) (ports.RecordSink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.params = params
	f.sink = &memSink{}
	return f.sink, nil
}

func (f *memFactory) lastSink() *memSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink
}

// startConn wires a connection state machine to one end of an in-memory
// pipe and returns the peer end plus the serve result channel.
func startConn(t *testing.T, factory ports.SinkFactory, maxRecord int) (net.Conn, chan error) {
	t.Helper()
	srvEnd, cliEnd := net.Pipe()
	c := newConn(srvEnd, factory, record.Codec{}, 0, maxRecord)
	done := make(chan error, 1)
	go func() {
		err := c.serve()
		c.close()
		done <- err
	}()
	t.Cleanup(func() { _ = cliEnd.Close() })
	return cliEnd, done
}

func send(t *testing.T, nc net.Conn, data []byte) {
	t.Helper()
	_ = nc.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := nc.Write(data); err != nil {
		t.Fatalf("write %q: %v", data, err)
	}
}

func readReply(t *testing.T, nc net.Conn) string {
	t.Helper()
	_ = nc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 128)
	n, err := nc.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return string(buf[:n])
}

func expectReply(t *testing.T, nc net.Conn, want string) {
	t.Helper()
	if got := readReply(t, nc); got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func waitErr(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not terminate")
		return nil
	}
}

// handshake drives the client side of HELLO/IDENTIFY/LOG.
func handshake(t *testing.T, nc net.Conn) {
	t.Helper()
	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	send(t, nc, []byte(`IDENTIFY {"level":0,"filename":"x.log"}`+"\n"))
	expectReply(t, nc, "OK\n")
	send(t, nc, []byte("LOG\n"))
	expectReply(t, nc, "OK\n")
}

func frame(payload []byte) []byte {
	hdr := make([]byte, protocol.HeaderLen)
	binary.BigEndian.PutUint32(hdr, uint32(len(payload)))
	return append(hdr, payload...)
}

func TestHandshakeAndRecordDelivery(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)

	var codec record.Codec
	blob, err := codec.Encode(record.Record{
		Name:    "app",
		Level:   record.LevelInfo,
		Message: "hello",
		Time:    time.Now(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	send(t, nc, frame(blob))

	// Second record proves remaining resets to the header length.
	send(t, nc, frame(blob))

	send(t, nc, frame(nil)) // zero header: enter messaging, no reply
	send(t, nc, []byte("QUIT\n"))
	if err := waitErr(t, done); err != nil {
		t.Fatalf("serve returned %v", err)
	}

	sink := factory.lastSink()
	if sink == nil {
		t.Fatal("sink never constructed")
	}
	recs := sink.records()
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Message != "hello" {
		t.Fatalf("record message = %q", recs[0].Message)
	}
	if !sink.closed {
		t.Fatal("sink not closed with connection")
	}
}

func TestHandshakeChunkedDelivery(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HEL"))
	send(t, nc, []byte("LO 1."))
	send(t, nc, []byte("0\n"))
	expectReply(t, nc, "HELLO 1.0\n")

	_ = nc.Close()
	_ = waitErr(t, done)
}

func TestWelcomeIgnoresClientVersion(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 9.9\n"))
	expectReply(t, nc, "HELLO 1.0\n")

	_ = nc.Close()
	_ = waitErr(t, done)
}

func TestWelcomeRejectsOtherVerb(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("EHLO 1.0\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestIdentifyMissingLevel(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	send(t, nc, []byte(`IDENTIFY {"filename":"x.log"}`+"\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	if factory.lastSink() != nil {
		t.Fatal("sink constructed despite missing level")
	}
}

func TestIdentifyInvalidJSON(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	send(t, nc, []byte("IDENTIFY {not json}\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestIdentifySinkRejection(t *testing.T) {
	factory := &memFactory{err: fmt.Errorf("unknown parameter")}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	send(t, nc, []byte(`IDENTIFY {"level":20,"bogus":true}`+"\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestIdentifyStripsLevelFromParams(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)
	_ = nc.Close()
	_ = waitErr(t, done)

	if _, ok := factory.params["level"]; ok {
		t.Fatal("level key leaked into sink params")
	}
	if factory.params["filename"] != "x.log" {
		t.Fatalf("params = %v, want filename pass-through", factory.params)
	}
}

func TestWaitingRejectsOtherLine(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	send(t, nc, []byte(`IDENTIFY {"level":0,"filename":"x.log"}`+"\n"))
	expectReply(t, nc, "OK\n")
	send(t, nc, []byte("LOGS\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestFormatReplacesFormatterAndStaysMessaging(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)
	send(t, nc, frame(nil))
	send(t, nc, []byte(`FORMAT {"fmt":"%(message)s"}`+"\n"))
	expectReply(t, nc, "OK\n")

	// Still in messaging: a second FORMAT is accepted.
	send(t, nc, []byte(`FORMAT {"style":"{"}`+"\n"))
	expectReply(t, nc, "OK\n")

	send(t, nc, []byte("QUIT\n"))
	if err := waitErr(t, done); err != nil {
		t.Fatalf("serve returned %v", err)
	}
	if factory.lastSink().formatter() == nil {
		t.Fatal("formatter not replaced")
	}
}

func TestFormatRejectsUnknownKey(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)
	send(t, nc, frame(nil))
	send(t, nc, []byte(`FORMAT {"color":"red"}`+"\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestMessagingRejectsUnknownVerb(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)
	send(t, nc, frame(nil))
	send(t, nc, []byte("PING\n"))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestBadPayloadClosesWithoutEmit(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	handshake(t, nc)
	send(t, nc, frame([]byte("not a record")))
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
	if got := factory.lastSink().records(); len(got) != 0 {
		t.Fatalf("sink received %d records from bad payload", len(got))
	}
}

func TestOversizedHeaderRejected(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 8)

	handshake(t, nc)
	// The header alone is rejected; the peer's write of the 9-byte body
	// would never be consumed.
	hdr := make([]byte, protocol.HeaderLen)
	binary.BigEndian.PutUint32(hdr, 9)
	send(t, nc, hdr)
	if err := waitErr(t, done); !errors.Is(err, protocol.ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestPeerDisconnectMidHandshake(t *testing.T) {
	factory := &memFactory{}
	nc, done := startConn(t, factory, 0)

	send(t, nc, []byte("HELLO 1.0\n"))
	expectReply(t, nc, "HELLO 1.0\n")
	_ = nc.Close()
	if err := waitErr(t, done); err == nil {
		t.Fatal("expected an error for mid-handshake disconnect")
	}
}
