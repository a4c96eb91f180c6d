// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxyclient

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/bureau-foundation/fdproxy/lib/fdpass"
)

const actionOpenFile = "open_file"

// request is the wire format of an open_file request.
type request struct {
	Action string `cbor:"action"`
	Path   string `cbor:"path,omitempty"`
}

// response is the wire format of the service's answer.
type response struct {
	OK     bool   `cbor:"ok"`
	Error  string `cbor:"error,omitempty"`
	Digest string `cbor:"digest,omitempty"`
}

type reply struct {
	response    response
	descriptors []int
}

// connection is one bound connection to the service.
type connection struct {
	conn   *net.UnixConn
	logger *slog.Logger

	// callMu allows one request in flight; replies has room for its
	// answer.
	callMu  sync.Mutex
	replies chan reply

	// dead is closed by the reader goroutine once the connection is
	// unusable.
	dead chan struct{}
}

func newConnection(conn *net.UnixConn, logger *slog.Logger) *connection {
	return &connection{
		conn:    conn,
		logger:  logger,
		replies: make(chan reply, 1),
		dead:    make(chan struct{}),
	}
}

// linkToDeath starts the reader goroutine. died runs once, after dead
// is closed.
func (c *connection) linkToDeath(died func()) {
	go c.readLoop(died)
}

func (c *connection) readLoop(died func()) {
	defer func() {
		c.conn.Close()
		close(c.dead)
		died()
	}()

	for {
		var message response
		descriptors, err := fdpass.Receive(c.conn, &message)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("file proxy connection failed", "error", err)
			}
			return
		}

		select {
		case c.replies <- reply{response: message, descriptors: descriptors}:
		default:
			c.logger.Error("unsolicited message from file proxy")
			fdpass.CloseDescriptors(descriptors)
			return
		}
	}
}

// open performs one open_file call.
func (c *connection) open(path string) (*os.File, string, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	select {
	case <-c.dead:
		return nil, "", ErrServiceUnavailable
	default:
	}

	if err := fdpass.Send(c.conn, request{Action: actionOpenFile, Path: path}); err != nil {
		c.logger.Warn("sending open request failed", "path", path, "error", err)
		return nil, "", ErrServiceUnavailable
	}

	var answer reply
	select {
	case answer = <-c.replies:
	case <-c.dead:
		// A reply that beat the hang-up still counts.
		select {
		case answer = <-c.replies:
		default:
			c.logger.Warn("file proxy died during open", "path", path)
			return nil, "", ErrServiceUnavailable
		}
	}

	if !answer.response.OK {
		fdpass.CloseDescriptors(answer.descriptors)
		c.logger.Warn("file proxy refused open", "path", path, "remote_error", answer.response.Error)
		return nil, "", ErrRemoteOpenFailed
	}
	if len(answer.descriptors) != 1 {
		fdpass.CloseDescriptors(answer.descriptors)
		c.logger.Error("file proxy reply carried wrong descriptor count", "path", path, "count", len(answer.descriptors))
		return nil, "", ErrRemoteOpenFailed
	}
	// Replies arrive in request order under callMu, so this descriptor
	// is the one opened for path.
	return os.NewFile(uintptr(answer.descriptors[0]), path), answer.response.Digest, nil
}
