// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports how an fdproxy binary was built.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are set with
// -ldflags -X; development builds and test runs see the defaults.
// [Current] gathers them, with the Go toolchain and platform, into a
// [Build], and [Print] renders it for --version.
package version
