// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fdcache

import "strconv"

// ProcFdPrefix is the open-file-table pseudo-directory of the calling
// process. Opening ProcFdPrefix+N reopens whatever descriptor N refers
// to, without needing access to the file's original path.
const ProcFdPrefix = "/proc/self/fd/"

// ProcPath returns the descriptor reference for fd.
func ProcPath(fd int) string {
	return ProcFdPrefix + strconv.Itoa(fd)
}
