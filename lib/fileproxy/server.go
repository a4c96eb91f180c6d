// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fileproxy

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/fdproxy/lib/fdpass"
)

// Config configures a Server.
type Config struct {
	// SocketPath is where the service listens.
	SocketPath string

	// Root is the privileged package's data directory. Only files
	// beneath it are served.
	Root string

	// Digest enables BLAKE3 digests of served files in responses.
	Digest bool

	// AllowedUIDs restricts which peer UIDs may connect. Empty allows
	// every UID that can reach the socket.
	AllowedUIDs []int

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Server serves open_file requests on a Unix socket.
type Server struct {
	socketPath  string
	root        string
	digest      bool
	allowedUIDs []int
	logger      *slog.Logger

	// rootDirectory anchors openat2 resolution. Opened once in
	// NewServer and closed when Serve returns.
	rootDirectory *os.File

	ready chan struct{}

	mu          sync.Mutex
	connections map[*net.UnixConn]struct{}

	// activeConnections tracks connection handlers for graceful
	// shutdown.
	activeConnections sync.WaitGroup
}

// NewServer validates config and opens the root directory.
func NewServer(config Config) (*Server, error) {
	if config.SocketPath == "" {
		return nil, errors.New("fileproxy: socket path is required")
	}
	if !filepath.IsAbs(config.Root) {
		return nil, fmt.Errorf("fileproxy: root %q is not absolute", config.Root)
	}
	root := filepath.Clean(config.Root)
	rootDirectory, err := os.OpenFile(root, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fileproxy: opening root: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		socketPath:    config.SocketPath,
		root:          root,
		digest:        config.Digest,
		allowedUIDs:   slices.Clone(config.AllowedUIDs),
		logger:        logger,
		rootDirectory: rootDirectory,
		ready:         make(chan struct{}),
		connections:   make(map[*net.UnixConn]struct{}),
	}, nil
}

// Ready is closed once the socket is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is cancelled. On cancellation it
// stops listening, hangs up every open connection (which consumers
// observe as service death), and waits for handlers to finish.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	defer s.rootDirectory.Close()

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := fdpass.Listen(s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept and every connection read when the context is
	// cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
		s.hangUpAll()
	}()

	s.logger.Info("file proxy listening", "path", s.socketPath, "root", s.root)
	close(s.ready)

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// track registers conn for hang-up on shutdown. Returns false when the
// server is already shutting down.
func (s *Server) track(conn *net.UnixConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connections == nil {
		return false
	}
	s.connections[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *net.UnixConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
}

func (s *Server) hangUpAll() {
	s.mu.Lock()
	connections := s.connections
	s.connections = nil
	s.mu.Unlock()
	for conn := range connections {
		conn.Close()
	}
}

// handleConnection serves requests on conn until the peer hangs up or
// the server shuts down.
func (s *Server) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	logger := s.logger
	credentials, err := fdpass.PeerCredentials(conn)
	if err != nil {
		s.logger.Warn("rejecting connection without peer credentials", "error", err)
		return
	}
	logger = logger.With("peer_uid", credentials.Uid, "peer_pid", credentials.Pid)
	if len(s.allowedUIDs) > 0 && !slices.Contains(s.allowedUIDs, int(credentials.Uid)) {
		logger.Warn("rejecting connection from disallowed uid")
		return
	}
	logger.Debug("consumer connected")

	for {
		var request Request
		descriptors, err := fdpass.Receive(conn, &request)
		// Clients never send descriptors.
		fdpass.CloseDescriptors(descriptors)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Debug("consumer disconnected")
			} else {
				logger.Warn("reading request failed", "error", err)
			}
			return
		}

		if err := s.dispatch(conn, logger, request); err != nil {
			logger.Warn("writing response failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(conn *net.UnixConn, logger *slog.Logger, request Request) error {
	if request.Action != ActionOpenFile {
		logger.Warn("unknown action", "action", request.Action)
		return fdpass.Send(conn, Response{OK: false, Error: fmt.Sprintf("unknown action %q", request.Action)})
	}

	file, digest, err := s.openFile(request.Path)
	if err != nil {
		logger.Warn("open refused", "path", request.Path, "error", err)
		return fdpass.Send(conn, Response{OK: false, Error: openFailedMessage})
	}
	// The consumer receives its own duplicate; ours is released once
	// the message is sent.
	defer file.Close()

	logger.Debug("serving file", "path", request.Path, "digest", digest)
	return fdpass.Send(conn, Response{OK: true, Digest: digest}, file)
}

// openFile opens requested read-only beneath the root. The returned
// error carries the real reason for local logging only.
func (s *Server) openFile(requested string) (*os.File, string, error) {
	relative, err := s.relativeToRoot(requested)
	if err != nil {
		return nil, "", err
	}

	file, err := s.openBeneath(relative, requested)
	if err != nil {
		return nil, "", err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, "", fmt.Errorf("not a regular file (mode %v)", info.Mode())
	}

	if !s.digest {
		return file, "", nil
	}
	digest, err := digestFile(file, info.Size())
	if err != nil {
		file.Close()
		return nil, "", err
	}
	return file, digest, nil
}

// relativeToRoot checks that requested names something strictly below
// the root and returns it relative to the root.
func (s *Server) relativeToRoot(requested string) (string, error) {
	if !filepath.IsAbs(requested) {
		return "", errors.New("path is not absolute")
	}
	cleaned := filepath.Clean(requested)
	relative, found := strings.CutPrefix(cleaned, s.root+string(filepath.Separator))
	if !found || relative == "" {
		return "", errors.New("path is outside the served root")
	}
	return relative, nil
}

func (s *Server) openBeneath(relative, name string) (*os.File, error) {
	how := &unix.OpenHow{
		Flags:   unix.O_RDONLY | unix.O_CLOEXEC | unix.O_NOFOLLOW,
		Resolve: unix.RESOLVE_BENEATH | unix.RESOLVE_NO_SYMLINKS | unix.RESOLVE_NO_MAGICLINKS,
	}
	for {
		descriptor, err := unix.Openat2(int(s.rootDirectory.Fd()), relative, how)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ENOSYS {
			// Kernels before 5.6. The prefix check already ran; refuse
			// symlinks in the last component at least.
			return os.OpenFile(filepath.Join(s.root, relative), os.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
		}
		if err != nil {
			return nil, fmt.Errorf("openat2: %w", err)
		}
		return os.NewFile(uintptr(descriptor), name), nil
	}
}

// digestFile hashes the file without moving its offset, which the
// consumer shares once the descriptor is passed.
func digestFile(file *os.File, size int64) (string, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, io.NewSectionReader(file, 0, size)); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
