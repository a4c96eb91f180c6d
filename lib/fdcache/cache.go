// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fdcache

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Opener opens a path on the cache's behalf. *proxyclient.Client
// satisfies it.
type Opener interface {
	Open(path string) (*os.File, string, error)
}

// Entry is one cached descriptor.
type Entry struct {
	Path string
	File *os.File

	// Digest is the content digest reported by the service, if any.
	Digest string
}

// Fd returns the descriptor number.
func (e *Entry) Fd() int {
	return int(e.File.Fd())
}

// Info is a point-in-time description of an entry for diagnostics.
type Info struct {
	Path   string
	Fd     int
	Digest string
}

// Cache is the path→descriptor cache. The zero value is not usable;
// construct with New.
type Cache struct {
	opener Opener

	mu    sync.Mutex
	live  map[string]*Entry
	stale []*Entry
}

// New creates an empty cache backed by opener.
func New(opener Opener) *Cache {
	return &Cache{
		opener: opener,
		live:   make(map[string]*Entry, 20),
	}
}

// Get returns the descriptor for path, opening it through the proxy on
// the first request. The cache keeps ownership: callers must not close
// the returned file.
func (c *Cache) Get(path string) (*os.File, error) {
	entry, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	return entry.File, nil
}

// Fd returns the descriptor number for path, opening it if needed.
func (c *Cache) Fd(path string) (int, error) {
	entry, err := c.entry(path)
	if err != nil {
		return -1, err
	}
	return entry.Fd(), nil
}

func (c *Cache) entry(path string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.live[path]; ok {
		return entry, nil
	}

	file, digest, err := c.opener.Open(path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("unable to open %s", path)
	}
	entry := &Entry{Path: path, File: file, Digest: digest}
	c.live[path] = entry
	return entry, nil
}

// Dup returns a new descriptor for path, created with F_DUPFD_CLOEXEC.
// Unlike Get, the caller owns the result and should close it; the
// cached descriptor is unaffected.
func (c *Cache) Dup(path string) (*os.File, error) {
	entry, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	duplicate, err := unix.FcntlInt(uintptr(entry.Fd()), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("duplicating descriptor for %s: %w", path, err)
	}
	return os.NewFile(uintptr(duplicate), path), nil
}

// Invalidate moves every live entry to the stale pool and empties the
// live map. Nothing is closed. It is registered as the proxy client's
// death callback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.live {
		c.stale = append(c.stale, entry)
	}
	clear(c.live)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Entries describes the live entries, sorted by path.
func (c *Cache) Entries() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]Info, 0, len(c.live))
	for _, entry := range c.live {
		infos = append(infos, entry.info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.Path, b.Path) })
	return infos
}

// Stale describes the entries in the stale pool, in eviction order.
func (c *Cache) Stale() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]Info, 0, len(c.stale))
	for _, entry := range c.stale {
		infos = append(infos, entry.info())
	}
	return infos
}

func (e *Entry) info() Info {
	return Info{Path: e.Path, Fd: e.Fd(), Digest: e.Digest}
}
