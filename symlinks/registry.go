// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symlinks implements the symlink registry: an in-memory symlink
// table persisted as the content of a single sidecar store node, kept
// fresh via a store watch. It is grounded on the mutex-protected,
// store-backed cache shape used throughout upspin's cmd/dfuse (cache.go's
// cachedFile table, directorycache.go's userCache).
package symlinks

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"zoofs.io/log"
	"zoofs.io/store"
)

// SidecarName is the reserved node name holding the serialized symlink
// table, relative to the mount root.
const SidecarName = "__symlinks__"

const maxRefreshAttempts = 3

// Registry is the symlink table. Only LEAF_AS_HYBRID uses it; other leaf
// modes construct one but never call Refresh, so it stays permanently
// empty.
type Registry struct {
	client      store.Client
	sidecarPath string

	mu      sync.Mutex
	entries map[string]string // link path -> target path

	fresh atomic.Bool
}

// New returns a Registry persisting to {root}/__symlinks__.
func New(client store.Client, root string) *Registry {
	path := root + "/" + SidecarName
	if root == "" || root == "/" {
		path = "/" + SidecarName
	}
	return &Registry{
		client:      client,
		sidecarPath: path,
		entries:     make(map[string]string),
	}
}

// SidecarPath returns the reserved sidecar node's store path.
func (r *Registry) SidecarPath() string {
	return r.sidecarPath
}

// MarkStale flags the in-memory view as possibly out of date with the
// store; it is called by the global watcher when the sidecar's data-change
// watch fires. The next Refresh call re-reads the sidecar.
func (r *Registry) MarkStale() {
	r.fresh.Store(false)
}

// Fresh reports whether the in-memory view is known to match the store.
func (r *Registry) Fresh() bool {
	return r.fresh.Load()
}

// Refresh re-reads the sidecar if the in-memory view is stale, creating it
// first if absent, and re-arms its single-shot watch. The GetAndWatch read
// is attempted up to three times on store error; an error from the
// initial Exists check is not retried. In either failure case it logs and
// continues with the possibly-stale view rather than failing the caller's
// FsOps handler.
func (r *Registry) Refresh() {
	if r.fresh.Load() {
		return
	}

	exists, err := r.client.Exists(r.sidecarPath)
	if err != nil {
		log.Error.Printf("symlinks: exists %q: %v", r.sidecarPath, err)
		return
	}
	if !exists {
		// A racing mount may have created it between the Exists and here;
		// the GetAndWatch below reads whatever won.
		if err := r.client.Create(r.sidecarPath); err != nil {
			log.Warning.Printf("symlinks: create sidecar %q: %v", r.sidecarPath, err)
		}
	}

	var data []byte
	var lastErr error
	for attempt := 0; attempt < maxRefreshAttempts; attempt++ {
		data, lastErr = r.client.GetAndWatch(r.sidecarPath)
		if lastErr == nil {
			break
		}
		log.Warning.Printf("symlinks: refresh attempt %d for %q: %v", attempt+1, r.sidecarPath, lastErr)
	}
	if lastErr != nil {
		log.Error.Printf("symlinks: giving up refreshing %q after %d attempts, using stale view: %v",
			r.sidecarPath, maxRefreshAttempts, lastErr)
		return
	}

	entries := parse(data)
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	r.fresh.Store(true)
}

func parse(data []byte) map[string]string {
	entries := make(map[string]string)
	if len(data) == 0 {
		return entries
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "=", 2)
		if len(fields) < 2 {
			log.Warning.Printf("symlinks: skipping corrupt sidecar line %q", line)
			continue
		}
		entries[fields[0]] = fields[1]
	}
	return entries
}

func serialize(entries map[string]string) []byte {
	names := make([]string, 0, len(entries))
	for link := range entries {
		names = append(names, link)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, link := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(link)
		b.WriteByte('=')
		b.WriteString(entries[link])
	}
	return []byte(b.String())
}

// Lookup returns the target a link path resolves to, and whether it is
// registered at all.
func (r *Registry) Lookup(link string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.entries[link]
	return target, ok
}

// Children returns the leaf names of every registered symlink whose
// parent directory equals dir, for readdir's symlink-emission rule.
// Matching is exact parent-path equality; nested symlinks whose target is
// itself a symlink are not special-cased.
func (r *Registry) Children(dir string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for link := range r.entries {
		parent, name := splitParent(link)
		if parent == dir {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func splitParent(path string) (parent, name string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}

// Create registers link -> target and persists the table.
func (r *Registry) Create(link, target string) error {
	r.mu.Lock()
	r.entries[link] = target
	r.mu.Unlock()
	return r.store()
}

// Remove deregisters link and persists the table. It is a no-op, not an
// error, if link was not registered.
func (r *Registry) Remove(link string) error {
	r.mu.Lock()
	delete(r.entries, link)
	r.mu.Unlock()
	return r.store()
}

// Rename moves the entry at oldLink to newLink, preserving its original
// target rather than discarding it.
func (r *Registry) Rename(oldLink, newLink string) error {
	r.mu.Lock()
	target, ok := r.entries[oldLink]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, oldLink)
	r.entries[newLink] = target
	r.mu.Unlock()
	return r.store()
}

// store serializes the in-memory table and writes it to the sidecar,
// creating the sidecar first if it does not exist yet, keeping the
// sidecar content equal to the in-memory table after every mutating
// operation.
func (r *Registry) store() error {
	r.mu.Lock()
	data := serialize(r.entries)
	r.mu.Unlock()
	err := r.client.Set(r.sidecarPath, data)
	if se, ok := err.(*store.Error); ok && se.Code == store.NoNode {
		if err := r.client.Create(r.sidecarPath); err != nil {
			return err
		}
		err = r.client.Set(r.sidecarPath, data)
	}
	return err
}
