// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hooks holds the process-wide handlers that the surrounding
// runtime calls at two cross-cutting points: building a class or
// native-library search path, and reading a file's modification time.
//
// Nothing is installed until the feature gate activates. Until then
// (and forever, in processes where it never does) both entry points
// behave as if the module proxy did not exist.
package hooks

import (
	"os"
	"sync/atomic"
	"time"
)

// ClassLoaderPathFunc rewrites a search path. nativeLibraries is true
// for native-library search paths.
type ClassLoaderPathFunc func(pathList string, nativeLibraries bool) (string, error)

// LastModifiedFunc returns a path's modification time, or the zero time
// when it does not handle the path.
type LastModifiedFunc func(path string) (time.Time, error)

var (
	classLoaderPath atomic.Pointer[ClassLoaderPathFunc]
	lastModified    atomic.Pointer[LastModifiedFunc]
)

// SetClassLoaderPathHook installs fn as the search path hook. A nil fn
// removes it.
func SetClassLoaderPathHook(fn ClassLoaderPathFunc) {
	if fn == nil {
		classLoaderPath.Store(nil)
		return
	}
	classLoaderPath.Store(&fn)
}

// SetLastModifiedHook installs fn as the modification time hook. A nil
// fn removes it.
func SetLastModifiedHook(fn LastModifiedFunc) {
	if fn == nil {
		lastModified.Store(nil)
		return
	}
	lastModified.Store(&fn)
}

// ModifyClassLoaderPath passes pathList through the installed hook, or
// returns it unchanged when none is installed.
func ModifyClassLoaderPath(pathList string, nativeLibraries bool) (string, error) {
	hook := classLoaderPath.Load()
	if hook == nil {
		return pathList, nil
	}
	return (*hook)(pathList, nativeLibraries)
}

// FileModTime returns the modification time of path. The installed
// hook answers first; when there is none, or it does not handle path,
// the file is statted directly.
func FileModTime(path string) (time.Time, error) {
	if hook := lastModified.Load(); hook != nil {
		modified, err := (*hook)(path)
		if err != nil {
			return time.Time{}, err
		}
		if !modified.IsZero() {
			return modified, nil
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
