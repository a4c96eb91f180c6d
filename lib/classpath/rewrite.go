// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classpath rewrites class and native-library search paths so
// that entries inside the privileged package's storage point at cached
// descriptors instead of raw paths.
//
// A search path is a list of segments joined by os.PathListSeparator.
// A privileged segment such as
//
//	/data/user_de/0/com.example.host/app_chimera/m/00000001/module.apk
//
// becomes "/proc/self/fd/37". Native library search paths address
// libraries stored inside an archive as <archive>!/<entry>; only the
// archive part is replaced, so
//
//	/data/user_de/0/com.example.host/.../module.apk!/lib/arm64-v8a
//
// becomes "/proc/self/fd/37!/lib/arm64-v8a".
package classpath

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bureau-foundation/fdproxy/lib/fdcache"
	"github.com/bureau-foundation/fdproxy/lib/privpath"
)

// EntrySeparator splits an archive path from the path of an entry
// inside it, as understood by the dynamic linker.
const EntrySeparator = "!/"

// ErrMalformed is returned for a privileged native-library segment
// without an EntrySeparator.
var ErrMalformed = errors.New("native library path lacks archive entry separator")

// Descriptors resolves a path to a cached descriptor number.
// *fdcache.Cache satisfies it.
type Descriptors interface {
	Fd(path string) (int, error)
}

// Rewriter rewrites search paths. A nil *Rewriter returns every path
// unchanged.
type Rewriter struct {
	prefix      privpath.Prefix
	descriptors Descriptors
}

// New creates a Rewriter for paths under prefix.
func New(prefix privpath.Prefix, descriptors Descriptors) *Rewriter {
	return &Rewriter{prefix: prefix, descriptors: descriptors}
}

// Rewrite replaces every privileged segment of pathList with a
// descriptor reference. nativeLibraries selects archive-entry handling.
// When nothing is privileged, pathList is returned as is.
//
// Errors from resolving a descriptor are returned unchanged; the whole
// rewrite fails rather than producing a list that still names
// unreadable paths.
func (r *Rewriter) Rewrite(pathList string, nativeLibraries bool) (string, error) {
	if r == nil {
		return pathList, nil
	}

	separator := string(os.PathListSeparator)
	segments := strings.Split(pathList, separator)
	modified := false

	for i, segment := range segments {
		if !r.prefix.IsPrivileged(segment) {
			continue
		}

		archive, entry := segment, ""
		if nativeLibraries {
			var found bool
			archive, entry, found = strings.Cut(segment, EntrySeparator)
			if !found {
				return "", fmt.Errorf("%w: %q", ErrMalformed, segment)
			}
		}

		fd, err := r.descriptors.Fd(archive)
		if err != nil {
			return "", err
		}

		reference := fdcache.ProcPath(fd)
		if nativeLibraries {
			reference += EntrySeparator + entry
		}
		segments[i] = reference
		modified = true
	}

	if !modified {
		return pathList, nil
	}
	return strings.Join(segments, separator), nil
}
