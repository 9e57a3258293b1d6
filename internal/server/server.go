// Package server implements the logship collector: a listener that
// accepts stream-socket connections and drives one protocol state
// machine per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/logship/logship/internal/ports"
	"github.com/logship/logship/internal/protocol"
	"github.com/logship/logship/internal/record"
	"github.com/logship/logship/internal/sink"
	"github.com/logship/logship/pkg/log"
)

// Config holds the collector's listening and protocol limits.
type Config struct {
	// Network is the listener network: "unix" or "tcp".
	Network string

	// Addr is the socket path (unix) or host:port (tcp).
	Addr string

	// SinkDir roots the files that IDENTIFY parameters may name.
	SinkDir string

	// MaxLineBytes bounds an accumulating text line.
	MaxLineBytes int

	// MaxRecordBytes bounds a record payload announced by a length header.
	MaxRecordBytes int

	// ShutdownGrace bounds how long Close waits for connection
	// goroutines to drain before force-closing their transports.
	ShutdownGrace time.Duration
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Network == "" {
		c.Network = "unix"
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = protocol.MaxLineLen
	}
	if c.MaxRecordBytes == 0 {
		c.MaxRecordBytes = protocol.MaxRecordLen
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 5 * time.Second
	}
}

// Validate checks the configuration for obvious misuse.
func (c *Config) Validate() error {
	switch c.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("unsupported network %q", c.Network)
	}
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server's structured logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSinkFactory replaces the default rotating-file sink factory.
func WithSinkFactory(f ports.SinkFactory) Option {
	return func(s *Server) { s.factory = f }
}

// WithCodec replaces the default record codec.
func WithCodec(c ports.RecordCodec) Option {
	return func(s *Server) { s.codec = c }
}

// Server accepts connections and hands each one to its own state
// machine. It holds no protocol knowledge beyond instantiating
// connections; live connections are tracked in a table keyed by their
// transport so Close can tear them all down.
type Server struct {
	cfg     Config
	logger  log.Logger
	factory ports.SinkFactory
	codec   ports.RecordCodec

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]*Conn
	closed bool
	wg     sync.WaitGroup
}

// New creates a server. Call Listen before Serve, or use Run.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	s := &Server{
		cfg:    cfg,
		logger: log.Noop{},
		codec:  record.Codec{},
		conns:  make(map[net.Conn]*Conn),
	}
	s.factory = &sink.Factory{Dir: cfg.SinkDir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen binds the configured address. A stale unix socket file left by
// a previous run is removed first.
func (s *Server) Listen() error {
	if s.cfg.Network == "unix" {
		if _, err := os.Stat(s.cfg.Addr); err == nil {
			_ = os.Remove(s.cfg.Addr)
		}
	}
	ln, err := net.Listen(s.cfg.Network, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.cfg.Network, s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("listening", log.String("network", s.cfg.Network), log.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve accepts connections until the listener closes. Each accepted
// connection runs on its own goroutine with exclusively owned buffers;
// the only state shared between connections is the tracking table.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve before listen")
	}
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		c := newConn(nc, s.factory, s.codec, s.cfg.MaxLineBytes, s.cfg.MaxRecordBytes)
		s.register(nc, c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.unregister(nc)
			defer c.close()
			s.logger.Debug("connection accepted", log.String("remote", remoteName(nc)))
			switch err := c.serve(); {
			case err == nil:
				s.logger.Debug("connection closed", log.String("remote", remoteName(nc)))
			case errors.Is(err, net.ErrClosed):
				s.logger.Debug("connection closed during shutdown",
					log.String("remote", remoteName(nc)))
			case errors.Is(err, io.EOF):
				s.logger.Debug("peer disconnected",
					log.String("remote", remoteName(nc)),
					log.String("state", c.state.String()))
			case errors.Is(err, protocol.ErrProtocol):
				s.logger.Warn("protocol violation",
					log.String("remote", remoteName(nc)),
					log.String("state", c.state.String()),
					log.Err(err))
			default:
				s.logger.Error("connection failed",
					log.String("remote", remoteName(nc)),
					log.String("state", c.state.String()),
					log.Err(err))
			}
		}()
	}
}

// Run listens and serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()
	select {
	case <-ctx.Done():
		s.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		s.Close()
		return err
	}
}

// Close stops accepting, drains live connections, and waits for their
// goroutines to exit. Records are fire-and-forget on the wire, so a
// peer that has quit or hung up may still have bytes buffered in the
// transport; each connection goroutine is left to read through to EOF
// so those records reach the sink. Connections that outlive the
// configured grace get their transport pulled.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.mu.Lock()
		conns := make([]net.Conn, 0, len(s.conns))
		for nc := range s.conns {
			conns = append(conns, nc)
		}
		s.mu.Unlock()
		if len(conns) > 0 {
			s.logger.Warn("force-closing connections after shutdown grace",
				log.Int("count", len(conns)))
		}
		for _, nc := range conns {
			_ = nc.Close()
		}
		<-done
	}
	if s.cfg.Network == "unix" {
		_ = os.Remove(s.cfg.Addr)
	}
}

func (s *Server) register(nc net.Conn, c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[nc] = c
}

func (s *Server) unregister(nc net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, nc)
}

func remoteName(nc net.Conn) string {
	if addr := nc.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return "unknown"
}
