// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the fdproxy
// binaries. It centralizes the one legitimate raw I/O pattern that
// exists outside the structured logger: reporting a fatal error from
// main() when the logger may not have been built yet.
package process
