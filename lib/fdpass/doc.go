// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fdpass carries CBOR messages with attached file descriptors
// over SOCK_SEQPACKET Unix sockets.
//
// Each datagram holds exactly one CBOR value. Descriptors travel in the
// same datagram as SCM_RIGHTS ancillary data, so a response and the
// descriptor it refers to always arrive together or not at all. The
// kernel installs received descriptors in the receiving process's
// descriptor table; they remain valid after the sender closes its
// copies or exits.
//
// The seqpacket socket type gives message boundaries for free: no
// length framing is needed, and a zero-length read means the peer hung
// up.
package fdpass
