// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxyclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/bureau-foundation/fdproxy/lib/fdpass"
)

var (
	// ErrServiceUnavailable means no connection to the proxy service
	// could be established, or it died while a call was in flight.
	ErrServiceUnavailable = errors.New("file proxy service unavailable")

	// ErrRemoteOpenFailed means the proxy service refused or failed to
	// open the path.
	ErrRemoteOpenFailed = errors.New("file proxy could not open file")
)

// State is the client's view of its service connection.
type State int

const (
	// Unresolved: no connection has been attempted successfully yet.
	Unresolved State = iota
	// Bound: a live connection is cached.
	Bound
	// Dead: the last connection died; the next Open re-resolves.
	Dead
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Bound:
		return "bound"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolver locates the proxy service and connects to it.
type Resolver interface {
	Resolve() (*net.UnixConn, error)
}

// SocketResolver connects to a service listening on a fixed socket
// path.
type SocketResolver struct {
	SocketPath string
}

// Resolve dials the socket.
func (r SocketResolver) Resolve() (*net.UnixConn, error) {
	return fdpass.Dial(r.SocketPath)
}

// Config configures a Client.
type Config struct {
	// Resolver connects to the service. Required.
	Resolver Resolver

	// Logger receives diagnostics, including the details that are
	// withheld from returned errors. Nil discards them.
	Logger *slog.Logger
}

// Client opens files through the proxy service. It is safe for
// concurrent use; calls on one connection are serialized.
type Client struct {
	resolver Resolver
	logger   *slog.Logger

	// mu covers resolution together with the cached connection, so
	// two callers never resolve at the same time.
	mu             sync.Mutex
	connection     *connection
	state          State
	deathCallbacks []func()
}

// New creates a Client. No connection is made until the first Open.
func New(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		resolver: config.Resolver,
		logger:   logger,
	}
}

// OnDeath registers callback to run every time a bound connection
// dies. Callbacks run on the connection's reader goroutine, after the
// connection has been cleared and after any in-flight Open has been
// failed, in registration order.
func (c *Client) OnDeath(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deathCallbacks = append(c.deathCallbacks, callback)
}

// State reports the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open asks the service to open path and returns the received
// descriptor, plus the service's content digest when it provides one.
// The caller owns the returned file.
//
// Blocks until the service answers or the connection dies. There is no
// retry: a death fails the call with ErrServiceUnavailable and the
// following call reconnects.
func (c *Client) Open(path string) (*os.File, string, error) {
	conn, err := c.bound()
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	file, digest, err := conn.open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	return file, digest, nil
}

// bound returns the cached connection, resolving one if needed.
func (c *Client) bound() (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connection != nil {
		return c.connection, nil
	}
	if c.resolver == nil {
		c.logger.Error("no file proxy resolver configured")
		return nil, ErrServiceUnavailable
	}

	raw, err := c.resolver.Resolve()
	if err != nil {
		c.logger.Error("unable to obtain file proxy service", "error", err)
		return nil, ErrServiceUnavailable
	}

	conn := newConnection(raw, c.logger)
	c.connection = conn
	c.state = Bound
	conn.linkToDeath(func() { c.serviceDied(conn) })
	c.logger.Debug("file proxy service bound")
	return conn, nil
}

// serviceDied runs on conn's reader goroutine after it hung up.
func (c *Client) serviceDied(conn *connection) {
	c.mu.Lock()
	if c.connection != conn {
		c.mu.Unlock()
		return
	}
	c.connection = nil
	c.state = Dead
	callbacks := append([]func(){}, c.deathCallbacks...)
	c.mu.Unlock()

	c.logger.Info("file proxy service died")
	for _, callback := range callbacks {
		callback()
	}
}
