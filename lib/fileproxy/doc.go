// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fileproxy implements the privileged side of the module file
// proxy: a service that opens files in the privileged package's
// private storage on behalf of consumer processes and hands back the
// open descriptors.
//
// The service listens on a SOCK_SEQPACKET Unix socket (see lib/fdpass).
// Unlike the one-request-per-connection socket services, a consumer
// keeps its connection open for the life of its process: the
// connection doubles as the liveness signal, and a consumer treats its
// hang-up as the service dying.
//
// Each request is a CBOR map {action: "open_file", path: "..."}. A
// successful response is {ok: true} with the descriptor attached as
// SCM_RIGHTS, optionally with a BLAKE3 digest of the file. Every
// failure produces the same opaque response, {ok: false, error: "unable
// to open file"}: the reason (missing file, path outside the root,
// symlink, not a regular file) is logged here and never crosses the
// trust boundary.
//
// The service enforces its root independently of the client. Paths are
// resolved with openat2(RESOLVE_BENEATH) relative to the root
// directory, so neither ".." components nor symlinks can escape it.
package fileproxy
