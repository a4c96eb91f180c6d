// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fdcache maps privileged module paths to descriptors opened
// through the file proxy, opening each path at most once.
//
// Cached descriptors are never closed. Native code may hold their raw
// numbers at any moment (a "/proc/self/fd/N" string handed to a loader,
// a dup() in flight), so no point in the process can prove that a
// descriptor is unused. When the proxy service dies the live map is
// emptied so that later loads go back to the (restarted) service, but
// the evicted entries move to a stale pool instead of being closed.
// The pool only grows; deaths are rare and module counts are small, so
// the leak stays bounded.
//
// An *os.File closes its descriptor from a finalizer once it becomes
// unreachable. Keeping every entry reachable from either the live map
// or the stale pool is what keeps the descriptors open.
//
// One mutex guards the live map, the stale pool, and the miss path,
// including the remote open. Module loading happens in bursts at
// startup, so the lock is effectively uncontended, and holding it
// across the remote call makes the interaction with Invalidate easy to
// reason about: an entry inserted before a death is migrated with the
// rest; an entry inserted after lands in the fresh map.
package fdcache
