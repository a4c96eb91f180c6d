// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxyclient is the consumer side of the module file proxy. It
// owns the connection to the proxy service, turns "open this path" into
// a received file descriptor, and reports when the service dies.
//
// The connection is resolved lazily on the first Open and kept for the
// life of the process. A reader goroutine owns every read on it: it
// delivers responses to the single in-flight call and, when the peer
// hangs up, marks the connection dead and runs the death callbacks
// registered with OnDeath. The next Open after a death resolves a fresh
// connection.
//
// The client mirrors the service's wire format with its own types,
// avoiding an import dependency from consumer code on the service
// implementation.
//
// Errors are deliberately coarse. The service never explains a refusal,
// and the client does not forward even the service's generic message:
// callers see ErrServiceUnavailable or ErrRemoteOpenFailed, and the
// detail goes to the log.
package proxyclient
