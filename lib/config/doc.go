// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration shared by the fdproxy
// binaries.
//
// Configuration comes from a single file named by either the
// FDPROXY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no search path.
//
// The file has a client section (the consumer side: where the service
// socket is, which package's storage is privileged, who is eligible)
// and a service section (the privileged side: what root to serve and to
// whom). Each binary validates only the section it uses.
//
// Environment-specific sections (development, staging, production)
// override base values when [Config].Environment matches. Without an
// explicit production section, production logs at warn level.
//
// Path fields support ${HOME} and ${VAR:-default} expansion. No other
// environment variables override config values.
package config
