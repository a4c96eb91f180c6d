// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package privpath classifies paths as belonging to the privileged
// package's per-user private storage.
//
// The privileged package keeps its loadable modules under
// <dataRoot>/<userID>/<package>/. A consumer process cannot open
// anything there directly; every path that falls under the prefix must
// be brokered through the file proxy service instead.
package privpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Prefix is the privileged storage prefix for one user. It always ends
// with a path separator, so that a sibling package whose name merely
// starts with the privileged package name is never matched.
//
// The zero Prefix matches nothing.
type Prefix struct {
	value string
}

// New computes the prefix for packageName under dataRoot for userID.
// dataRoot must be absolute; packageName must be a single path element.
func New(dataRoot string, userID int, packageName string) (Prefix, error) {
	if !filepath.IsAbs(dataRoot) {
		return Prefix{}, fmt.Errorf("data root %q is not absolute", dataRoot)
	}
	if userID < 0 {
		return Prefix{}, fmt.Errorf("invalid user id %d", userID)
	}
	if packageName == "" {
		return Prefix{}, errors.New("package name is empty")
	}
	if strings.ContainsRune(packageName, filepath.Separator) || packageName == "." || packageName == ".." {
		return Prefix{}, fmt.Errorf("package name %q is not a single path element", packageName)
	}
	directory := filepath.Join(filepath.Clean(dataRoot), strconv.Itoa(userID), packageName)
	return Prefix{value: directory + string(filepath.Separator)}, nil
}

// IsPrivileged reports whether path lies under the prefix.
func (p Prefix) IsPrivileged(path string) bool {
	return p.value != "" && strings.HasPrefix(path, p.value)
}

// String returns the prefix, including its trailing separator.
func (p Prefix) String() string {
	return p.value
}

// Directory returns the prefix without its trailing separator, which
// is the privileged package's data directory.
func (p Prefix) Directory() string {
	return strings.TrimSuffix(p.value, string(filepath.Separator))
}
