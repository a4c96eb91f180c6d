// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fileproxy

// ActionOpenFile is the only action the service understands.
const ActionOpenFile = "open_file"

// openFailedMessage is returned for every refused or failed open.
const openFailedMessage = "unable to open file"

// Request is the wire format for a client request.
type Request struct {
	Action string `cbor:"action"`
	Path   string `cbor:"path,omitempty"`
}

// Response is the wire format for a service response. When OK is true
// exactly one descriptor accompanies the message.
type Response struct {
	OK     bool   `cbor:"ok"`
	Error  string `cbor:"error,omitempty"`
	Digest string `cbor:"digest,omitempty"`
}
