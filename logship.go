// Package logship provides a transport protocol for shipping structured
// log records from a client process to a remote collector over a stream
// socket.
//
// Example collector usage:
//
//	cfg := logship.ServerConfig{Network: "unix", Addr: "/tmp/logship.sock", SinkDir: "/var/log/logship"}
//	srv, err := logship.NewServer(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Example client usage:
//
//	c, err := logship.Dial("unix", "/tmp/logship.sock",
//	    client.WithLevel(client.LevelInfo),
//	    client.WithSinkParam("filename", "app.log"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Quit()
//	c.Send(client.Record{Name: "app", Level: client.LevelInfo, Message: "hello", Time: time.Now()})
package logship

import (
	"github.com/logship/logship/internal/server"
	"github.com/logship/logship/pkg/client"
	"github.com/logship/logship/pkg/log"
)

// ServerConfig holds the collector's listening address and protocol
// limits.
type ServerConfig = server.Config

// Server is the collector: it accepts connections and drives one
// protocol state machine per connection.
type Server = server.Server

// Client is a connected, handshaken logship session.
type Client = client.Client

// Record is the structured log record shipped to a collector.
type Record = client.Record

// NewServer creates a collector with the default rotating-file sink.
func NewServer(cfg ServerConfig, logger log.Logger) (*Server, error) {
	return server.New(cfg, server.WithLogger(logger))
}

// Dial connects to a collector and performs the handshake.
func Dial(network, addr string, opts ...client.Option) (*Client, error) {
	return client.Dial(network, addr, opts...)
}
