// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package featuregate decides, once per process, whether the module
// proxy is active, and if so builds and installs it.
//
// A Gate starts out pending. The first call to Activate settles it:
// processes that are not regular applications, and applications the
// eligibility oracle does not list as consumers, leave it disabled for
// good. An eligible process gets the whole client side wired together,
//
//	proxyclient.Client  ──OnDeath──▶  fdcache.Cache.Invalidate
//	        ▲                               │
//	        └────────── Opener ─────────────┘
//	classpath.Rewriter ─┐
//	mtime.Shim ─────────┴─▶ Descriptors (the cache)
//
// and the gate's path and timestamp handlers are installed into
// [hooks]. The activation state is published with a single atomic store
// after everything is built. Readers that load nil treat every path as
// not applicable.
package featuregate
