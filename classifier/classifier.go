// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classifier implements the leaf-mode policies that resolve
// ZooKeeper's file/directory ambiguity into a POSIX-visible classification:
// the heart of the semantic bridge between a store where a node can carry
// both content and children, and a filesystem where it must be one or the
// other.
package classifier

import "sync"

// LeafMode selects how nodes that may carry both content and children are
// projected onto the POSIX file/directory distinction. It is chosen once,
// at mount time, and is immutable thereafter.
type LeafMode int

const (
	// LeafAsDir treats every existing node as a directory, except for the
	// synthetic "_zoo_data_" child that exposes a node's own content.
	LeafAsDir LeafMode = iota
	// LeafAsFile treats every existing node as a file; children are
	// invisible.
	LeafAsFile
	// LeafAsHybrid classifies a node by sticky, per-path memory of how it
	// was last used, falling back to a content/children heuristic.
	LeafAsHybrid
)

// ParseLeafMode maps a CLI -l/--leafMode value onto a LeafMode. Unknown
// values map to LeafAsHybrid.
func ParseLeafMode(s string) LeafMode {
	switch s {
	case "DIR":
		return LeafAsDir
	case "FILE":
		return LeafAsFile
	case "HYBRID":
		return LeafAsHybrid
	default:
		return LeafAsHybrid
	}
}

func (m LeafMode) String() string {
	switch m {
	case LeafAsDir:
		return "DIR"
	case LeafAsFile:
		return "FILE"
	case LeafAsHybrid:
		return "HYBRID"
	}
	return "HYBRID"
}

// DataNodeName is the synthetic child every leaf exposes in LeafAsDir mode,
// aliasing the parent node's own content.
const DataNodeName = "_zoo_data_"

// Stat is the subset of remote node metadata the classifier's fallback
// heuristic needs.
type Stat struct {
	NumChildren int
	DataLength  int
}

// Querier is the minimal remote-store surface the classifier's fallback
// heuristic needs: the list of a node's children and the length of its
// own content. It is satisfied by store.Client.
type Querier interface {
	Children(path string) ([]string, error)
	Stat(path string) (Stat, error)
}

// Memory is the HYBRID-only classification memory: two disjoint sets of
// store paths, known files and known directories. A path
// that has been observed acting as a file or directory by some FsOps
// handler is "sticky" from then on, until removed.
type Memory struct {
	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// NewMemory returns an empty classification memory.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
}

// MarkFile records that path has been observed acting as a file, evicting
// it from known_directories to preserve the exclusivity invariant.
func (m *Memory) MarkFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dirs, path)
	m.files[path] = true
}

// MarkDirectory records that path has been observed acting as a directory,
// evicting it from known_files.
func (m *Memory) MarkDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	m.dirs[path] = true
}

// Forget evicts path from both sets, called on successful remove.
func (m *Memory) Forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	delete(m.dirs, path)
}

// IsKnownFile reports whether path is in known_files.
func (m *Memory) IsKnownFile(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[path]
}

// IsKnownDirectory reports whether path is in known_directories.
func (m *Memory) IsKnownDirectory(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path]
}

// Classifier decides, for an existing store node, whether the kernel
// should see it as a file or a directory. Absence (NO_NODE) is handled
// one layer up, by FsOps: Classifier is only ever asked about nodes known
// to exist.
type Classifier struct {
	mode   LeafMode
	memory *Memory // nil outside LeafAsHybrid
}

// New returns a Classifier for the given leaf mode. memory is only
// consulted in LeafAsHybrid and may be nil otherwise.
func New(mode LeafMode, memory *Memory) *Classifier {
	return &Classifier{mode: mode, memory: memory}
}

// Mode returns the configured leaf mode.
func (c *Classifier) Mode() LeafMode {
	return c.mode
}

// Memory returns the classification memory, or nil outside LeafAsHybrid.
func (c *Classifier) Memory() *Memory {
	return c.memory
}

// IsDirectory decides whether path, an existing store node, should appear
// to the kernel as a directory. q is consulted only by the HYBRID
// fallback heuristic (rule 4); the other two modes never need it.
func (c *Classifier) IsDirectory(path string, q Querier) (bool, error) {
	switch c.mode {
	case LeafAsDir:
		return !isDataNodeAlias(path), nil
	case LeafAsFile:
		return false, nil
	case LeafAsHybrid:
		return c.isDirectoryHybrid(path, q)
	}
	return false, nil
}

func isDataNodeAlias(path string) bool {
	return lastSegment(path) == DataNodeName
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func (c *Classifier) isDirectoryHybrid(path string, q Querier) (bool, error) {
	if path == "/" {
		return true, nil
	}
	if c.memory.IsKnownFile(path) {
		return false, nil
	}
	if c.memory.IsKnownDirectory(path) {
		return true, nil
	}
	children, err := q.Children(path)
	if err != nil {
		return false, err
	}
	if len(children) > 0 {
		return true, nil
	}
	stat, err := q.Stat(path)
	if err != nil {
		return false, err
	}
	return stat.DataLength == 0, nil
}
