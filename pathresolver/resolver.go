// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pathresolver implements the translation from a kernel-visible
// path to the corresponding store path under the configured mount root.
package pathresolver

import (
	"strings"

	"zoofs.io/classifier"
)

// ReservedNames must not be valid user node names directly under the
// mount root. Readdir does not consult this set: it hides a __symlinks__
// child in LEAF_AS_HYBRID and rejects a _zoo_data_ child in the other
// leaf modes.
var ReservedNames = map[string]bool{
	classifier.DataNodeName: true,
	"__symlinks__":          true,
}

// Resolver translates kernel paths into store paths under root, applying
// the LEAF_AS_DIR data-node alias.
type Resolver struct {
	root string
	mode classifier.LeafMode
}

// New returns a Resolver for the given mount root and leaf mode. A root of
// "/" is treated as an empty prefix to avoid producing "//".
func New(root string, mode classifier.LeafMode) *Resolver {
	if root == "/" {
		root = ""
	}
	root = strings.TrimSuffix(root, "/")
	return &Resolver{root: root, mode: mode}
}

// Resolve maps a kernel path p to its store path.
func (r *Resolver) Resolve(p string) string {
	if r.mode == classifier.LeafAsDir {
		if parent, ok := splitDataNodeAlias(p); ok {
			p = parent
		}
	}
	full := r.root + p
	if full == "" {
		full = "/"
	}
	if full != "/" {
		full = strings.TrimSuffix(full, "/")
		if full == "" {
			full = "/"
		}
	}
	return full
}

// splitDataNodeAlias reports whether p's final segment is the synthetic
// "_zoo_data_" data-node name, and if so returns p with the segment
// stripped (the parent's path).
func splitDataNodeAlias(p string) (parent string, ok bool) {
	trimmed := strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || trimmed[idx+1:] != classifier.DataNodeName {
		return "", false
	}
	return trimmed[:idx], true
}

// IsDataNodeAlias reports whether p is the synthetic data-node path for
// some parent, only meaningful in LEAF_AS_DIR mode.
func IsDataNodeAlias(p string) bool {
	_, ok := splitDataNodeAlias(p)
	return ok
}

// IsReservedLeaf reports whether the final path segment is a reserved
// name that must not be treated as an ordinary user node.
func IsReservedLeaf(name string) bool {
	return ReservedNames[name]
}
