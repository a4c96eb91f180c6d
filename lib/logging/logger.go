// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured loggers used by fdproxy
// binaries.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New creates a logger writing to stderr at level. When stderr is a
// terminal it uses slog.TextHandler for human-readable output; when it
// is piped or redirected (init systems, log collectors, tests) it uses
// slog.JSONHandler.
//
// Callers scope the logger with component context via With():
//
//	logger := logging.New(level).With("component", "fileproxy")
func New(level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
