// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// file proxy service and its clients.
//
// Every message exchanged on the proxy socket is a single CBOR value.
// The socket is SOCK_SEQPACKET, so each datagram carries exactly one
// value and there is no stream framing: a datagram with bytes after its
// value is rejected. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Protocol types carry `cbor` struct tags. They are never marshaled to
// JSON.
package codec
