// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eligibility describes the calling process and decides whether
// it may activate the module proxy.
//
// How a package comes to be a consumer of the privileged package's
// modules is decided elsewhere; this package only carries the answer.
// The Oracle interface is that boundary. ConsumerList is the file-backed
// implementation used by the binaries: a JSONC document listing consumer
// package names,
//
//	{
//	  // packages built against the host's client library
//	  "consumers": [
//	    "com.example.maps",
//	    "com.example.wallet",
//	  ],
//	}
//
// UIDs follow the multi-user layout: uid = userID*100000 + appID.
// Application processes have app IDs in [10000, 19999]. Isolated
// service processes get app IDs in [99000, 99999]; they cannot talk to
// the proxy and never activate.
package eligibility
