// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fdpass

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/fdproxy/lib/codec"
)

// Network is the net package network name for SOCK_SEQPACKET Unix
// sockets.
const Network = "unixpacket"

// MaxMessageSize bounds a single encoded message. Requests and
// responses are a path plus a few flags; anything larger is rejected
// on both sides.
const MaxMessageSize = 64 * 1024

// MaxFiles is the largest number of descriptors accepted in one
// message. The protocol never sends more than one.
const MaxFiles = 4

// ErrTruncated is returned when a message or its ancillary data did
// not fit the receive buffers. Any descriptors that did arrive are
// closed before returning.
var ErrTruncated = errors.New("fdpass: message truncated")

// Listen creates a SOCK_SEQPACKET listener on socketPath.
func Listen(socketPath string) (*net.UnixListener, error) {
	return net.ListenUnix(Network, &net.UnixAddr{Name: socketPath, Net: Network})
}

// Dial connects to a SOCK_SEQPACKET listener at socketPath.
func Dial(socketPath string) (*net.UnixConn, error) {
	return net.DialUnix(Network, nil, &net.UnixAddr{Name: socketPath, Net: Network})
}

// Send encodes message and writes it as one datagram, attaching files
// as SCM_RIGHTS. The caller keeps ownership of files; the peer receives
// its own duplicates.
func Send(conn *net.UnixConn, message any, files ...*os.File) error {
	if len(files) > MaxFiles {
		return fmt.Errorf("fdpass: %d files exceeds limit of %d", len(files), MaxFiles)
	}
	data, err := codec.Marshal(message)
	if err != nil {
		return fmt.Errorf("fdpass: encoding message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("fdpass: message of %d bytes exceeds limit of %d", len(data), MaxMessageSize)
	}

	var oob []byte
	if len(files) > 0 {
		descriptors := make([]int, len(files))
		for i, file := range files {
			descriptors[i] = int(file.Fd())
		}
		oob = unix.UnixRights(descriptors...)
	}

	written, oobWritten, err := conn.WriteMsgUnix(data, oob, nil)
	// The descriptors must stay open until the kernel has copied them.
	runtime.KeepAlive(files)
	if err != nil {
		return fmt.Errorf("fdpass: writing message: %w", err)
	}
	if written != len(data) || oobWritten != len(oob) {
		return fmt.Errorf("fdpass: short write (%d/%d bytes, %d/%d ancillary)", written, len(data), oobWritten, len(oob))
	}
	return nil
}

// Receive reads one datagram, decodes its CBOR payload into message,
// and returns the attached descriptors. The caller owns them: it wraps
// each with os.NewFile under the name it knows the descriptor by, or
// releases them with CloseDescriptors.
//
// Returns io.EOF when the peer has hung up.
func Receive(conn *net.UnixConn, message any) ([]int, error) {
	buffer := make([]byte, MaxMessageSize)
	oob := make([]byte, unix.CmsgSpace(MaxFiles*4))

	n, oobn, flags, _, err := conn.ReadMsgUnix(buffer, oob)
	if err != nil {
		return nil, err
	}

	descriptors, parseErr := parseRights(oob[:oobn])
	if parseErr != nil {
		CloseDescriptors(descriptors)
		return nil, parseErr
	}
	if flags&(unix.MSG_TRUNC|unix.MSG_CTRUNC) != 0 {
		CloseDescriptors(descriptors)
		return nil, ErrTruncated
	}
	if n == 0 {
		CloseDescriptors(descriptors)
		return nil, io.EOF
	}

	if err := codec.Unmarshal(buffer[:n], message); err != nil {
		CloseDescriptors(descriptors)
		return nil, fmt.Errorf("fdpass: decoding message: %w", err)
	}
	return descriptors, nil
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	messages, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("fdpass: parsing control message: %w", err)
	}
	var descriptors []int
	for i := range messages {
		rights, err := unix.ParseUnixRights(&messages[i])
		if err != nil {
			// Not SCM_RIGHTS (credentials, for instance). Skip it.
			continue
		}
		descriptors = append(descriptors, rights...)
	}
	return descriptors, nil
}

// CloseDescriptors closes received descriptors that will not be used.
func CloseDescriptors(descriptors []int) {
	for _, descriptor := range descriptors {
		unix.Close(descriptor)
	}
}

// PeerCredentials returns the kernel-verified credentials of the
// process on the other end of conn (SO_PEERCRED).
func PeerCredentials(conn *net.UnixConn) (*unix.Ucred, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("fdpass: raw connection: %w", err)
	}
	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(descriptor uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(descriptor), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, fmt.Errorf("fdpass: raw connection control: %w", err)
	}
	if credentialsErr != nil {
		return nil, fmt.Errorf("fdpass: SO_PEERCRED: %w", credentialsErr)
	}
	return credentials, nil
}
