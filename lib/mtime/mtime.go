// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mtime answers last-modified queries for privileged module
// paths through their cached descriptors.
//
// Consumers compare a module's on-disk timestamp against the value they
// recorded when the module was installed and refuse to load it on a
// mismatch. The raw path is unreadable from the consumer, so a plain
// stat reports "no such file" and the check always fails. Statting the
// descriptor's /proc/self/fd/N alias instead returns the real
// timestamp.
package mtime

import (
	"fmt"
	"os"
	"time"

	"github.com/bureau-foundation/fdproxy/lib/fdcache"
	"github.com/bureau-foundation/fdproxy/lib/privpath"
)

// Descriptors resolves a path to a cached descriptor number.
// *fdcache.Cache satisfies it.
type Descriptors interface {
	Fd(path string) (int, error)
}

// Shim answers last-modified queries. A nil *Shim handles nothing.
type Shim struct {
	prefix      privpath.Prefix
	descriptors Descriptors
}

// New creates a Shim for paths under prefix.
func New(prefix privpath.Prefix, descriptors Descriptors) *Shim {
	return &Shim{prefix: prefix, descriptors: descriptors}
}

// LastModified returns the modification time of a privileged path,
// read through its descriptor. For paths it does not handle (and for a
// nil Shim) it returns the zero time and no error; the caller then
// falls back to its own stat.
func (s *Shim) LastModified(path string) (time.Time, error) {
	if s == nil || !s.prefix.IsPrivileged(path) {
		return time.Time{}, nil
	}

	fd, err := s.descriptors.Fd(path)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fdcache.ProcPath(fd))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat of descriptor for %s: %w", path, err)
	}
	return info.ModTime(), nil
}
