// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package featuregate

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/fdproxy/lib/classpath"
	"github.com/bureau-foundation/fdproxy/lib/eligibility"
	"github.com/bureau-foundation/fdproxy/lib/fdcache"
	"github.com/bureau-foundation/fdproxy/lib/hooks"
	"github.com/bureau-foundation/fdproxy/lib/mtime"
	"github.com/bureau-foundation/fdproxy/lib/privpath"
	"github.com/bureau-foundation/fdproxy/lib/proxyclient"
)

// State is the gate's settled outcome.
type State int

const (
	// Disabled: not yet activated, or settled as not applicable.
	Disabled State = iota
	// Enabled: the proxy is installed.
	Enabled
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures a Gate.
type Config struct {
	// Resolver connects the proxy client to the service. Required for
	// activation to do anything useful; a nil Resolver makes every
	// remote open fail with proxyclient.ErrServiceUnavailable.
	Resolver proxyclient.Resolver

	// DataRoot is the device-protected data root, such as
	// /data/user_de. The privileged prefix is
	// DataRoot/<user>/<PackageName>/.
	DataRoot string

	// PackageName is the privileged package whose storage is proxied.
	PackageName string

	// TriggerAuthority is the content authority whose acquisition
	// triggers activation in ActivateOnTrigger. Empty disables
	// trigger-based activation.
	TriggerAuthority string

	// Oracle decides consumer eligibility. Nil makes every process
	// ineligible.
	Oracle eligibility.Oracle

	// InstallHooks installs the gate's handlers into the process-wide
	// hook registry on activation.
	InstallHooks bool

	Logger *slog.Logger
}

// activation is everything built by a successful Activate. It is
// immutable once published.
type activation struct {
	prefix   privpath.Prefix
	client   *proxyclient.Client
	cache    *fdcache.Cache
	rewriter *classpath.Rewriter
	shim     *mtime.Shim
}

// Gate is the one-shot activation switch. Safe for concurrent use.
type Gate struct {
	config Config
	logger *slog.Logger

	// mu serializes the initializer. settled and err record its
	// outcome so later callers return immediately.
	mu      sync.Mutex
	settled bool
	err     error

	active atomic.Pointer[activation]
}

// New creates a pending Gate.
func New(config Config) *Gate {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{config: config, logger: logger}
}

// Activate settles the gate for process. Only the first call does any
// work; concurrent callers wait for it and later callers return its
// result. Ineligibility is not an error: the gate stays disabled and
// Activate returns nil.
func (g *Gate) Activate(process eligibility.Process) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settled {
		return g.err
	}
	g.settled = true
	g.err = g.activate(process)
	return g.err
}

// ActivateOnTrigger calls Activate when authority is the configured
// trigger authority, and does nothing otherwise.
func (g *Gate) ActivateOnTrigger(authority string, process eligibility.Process) error {
	if g.config.TriggerAuthority == "" || authority != g.config.TriggerAuthority {
		return nil
	}
	return g.Activate(process)
}

func (g *Gate) activate(process eligibility.Process) error {
	logger := g.logger.With(
		"uid", process.UID,
		"package", process.PackageName,
	)

	if !process.IsApplication() {
		logger.Debug("module proxy not applicable to non-application process")
		return nil
	}
	if g.config.Oracle == nil || !g.config.Oracle.IsActivationEligible(process) {
		logger.Debug("module proxy not applicable to non-consumer")
		return nil
	}

	prefix, err := privpath.New(g.config.DataRoot, process.UserID(), g.config.PackageName)
	if err != nil {
		return fmt.Errorf("activating module proxy: %w", err)
	}

	client := proxyclient.New(proxyclient.Config{
		Resolver: g.config.Resolver,
		Logger:   g.logger,
	})
	cache := fdcache.New(client)
	client.OnDeath(cache.Invalidate)

	state := &activation{
		prefix:   prefix,
		client:   client,
		cache:    cache,
		rewriter: classpath.New(prefix, cache),
		shim:     mtime.New(prefix, cache),
	}

	if g.config.InstallHooks {
		hooks.SetClassLoaderPathHook(g.RewritePath)
		hooks.SetLastModifiedHook(g.LastModified)
	}

	g.active.Store(state)
	logger.Info("module proxy enabled", "prefix", prefix.String())
	return nil
}

// State reports whether the proxy is installed.
func (g *Gate) State() State {
	if g.active.Load() != nil {
		return Enabled
	}
	return Disabled
}

// Enabled reports whether the proxy is installed.
func (g *Gate) Enabled() bool {
	return g.active.Load() != nil
}

// Prefix returns the privileged prefix, and false while disabled.
func (g *Gate) Prefix() (privpath.Prefix, bool) {
	state := g.active.Load()
	if state == nil {
		return privpath.Prefix{}, false
	}
	return state.prefix, true
}

// Cache returns the descriptor cache, or nil while disabled.
func (g *Gate) Cache() *fdcache.Cache {
	state := g.active.Load()
	if state == nil {
		return nil
	}
	return state.cache
}

// Client returns the proxy client, or nil while disabled.
func (g *Gate) Client() *proxyclient.Client {
	state := g.active.Load()
	if state == nil {
		return nil
	}
	return state.client
}

// RewritePath rewrites a class or native-library search path. While
// disabled it returns pathList unchanged.
func (g *Gate) RewritePath(pathList string, nativeLibraries bool) (string, error) {
	state := g.active.Load()
	if state == nil {
		return pathList, nil
	}
	return state.rewriter.Rewrite(pathList, nativeLibraries)
}

// LastModified returns the modification time of a privileged path.
// While disabled, and for other paths, it returns the zero time.
func (g *Gate) LastModified(path string) (time.Time, error) {
	state := g.active.Load()
	if state == nil {
		return time.Time{}, nil
	}
	return state.shim.LastModified(path)
}
