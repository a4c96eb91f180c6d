// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"strconv"
)

// Injected with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/fdproxy/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	Dirty     bool
	Time      string
	GoVersion string
	Platform  string
}

// Current collects the injected variables. An unparsable GitDirty
// counts as clean.
func Current() Build {
	dirty, _ := strconv.ParseBool(GitDirty)
	return Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     dirty,
		Time:      BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String is the one-line form: "0.1.0-dev (abc1234-dirty, <time>)".
func (b Build) String() string {
	commit := b.Commit
	if b.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", b.Version, commit, b.Time)
}

// Print writes the --version output for binary to stdout.
func Print(binary string) {
	build := Current()
	fmt.Printf("%s %s\n  Go: %s\n  Platform: %s\n", binary, build, build.GoVersion, build.Platform)
}
