// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storetest provides an in-memory stand-in for store.Client,
// used by the core packages' tests in place of a live ZooKeeper ensemble.
// It models the remote tree store's semantics (content plus an ordered
// set of named children per node) faithfully enough to drive the
// scenarios of spec.md §8, the way the jesseward-zoofuse reference
// adapter's tests mock a ZK handle with testify/mock but here backed by a
// real tree rather than call-by-call expectations.
package storetest

import (
	"path"
	"sort"
	"strings"
	"sync"

	"zoofs.io/classifier"
	"zoofs.io/store"
)

type node struct {
	data     []byte
	children map[string]bool
}

// FakeClient is an in-memory store.Client. The zero value is not usable;
// construct with New.
type FakeClient struct {
	mu       sync.Mutex
	nodes    map[string]*node
	watchers []func(store.Event)

	// Calls records every method invocation, in order, for assertions
	// that care about call sequencing (e.g. "set is never called with
	// content over max_file_size").
	Calls []Call
}

// Call records one FakeClient method invocation.
type Call struct {
	Method string
	Path   string
	Data   []byte
}

// New returns a FakeClient with just the root node present.
func New() *FakeClient {
	return &FakeClient{
		nodes: map[string]*node{
			"/": {children: make(map[string]bool)},
		},
	}
}

func (c *FakeClient) record(method, path string, data []byte) {
	c.Calls = append(c.Calls, Call{Method: method, Path: path, Data: data})
}

// Connect implements store.Client. The fake is always "connected"; it
// immediately delivers a StateConnected event so Session.Handle's
// barrier releases without a background goroutine.
func (c *FakeClient) Connect(hosts []string, watcher store.WatcherFunc) error {
	c.mu.Lock()
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()
	if watcher != nil {
		watcher(store.Event{Type: store.EventSessionState, State: store.StateConnected})
	}
	return nil
}

// AddAuth implements store.Client.
func (c *FakeClient) AddAuth(scheme, token string) error {
	c.record("add_auth", scheme, []byte(token))
	return nil
}

// Exists implements store.Client.
func (c *FakeClient) Exists(p string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("exists", p, nil)
	_, ok := c.nodes[p]
	return ok, nil
}

// Get implements store.Client.
func (c *FakeClient) Get(p string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("get", p, nil)
	n, ok := c.nodes[p]
	if !ok {
		return nil, &store.Error{Code: store.NoNode, Op: "get", Path: p}
	}
	return append([]byte(nil), n.data...), nil
}

// GetAndWatch implements store.Client: identical to Get, the fake has no
// need to actually arm a watch since FireDataChanged delivers directly.
func (c *FakeClient) GetAndWatch(p string) ([]byte, error) {
	c.record("get_and_watch", p, nil)
	return c.Get(p)
}

// Set implements store.Client.
func (c *FakeClient) Set(p string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("set", p, data)
	n, ok := c.nodes[p]
	if !ok {
		return &store.Error{Code: store.NoNode, Op: "set", Path: p}
	}
	n.data = append([]byte(nil), data...)
	return nil
}

// Create implements store.Client, registering the new node as a child of
// its parent.
func (c *FakeClient) Create(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("create", p, nil)
	if _, ok := c.nodes[p]; ok {
		return &store.Error{Code: store.Unknown, Op: "create", Path: p}
	}
	c.nodes[p] = &node{children: make(map[string]bool)}
	parent, name := splitParent(p)
	if pn, ok := c.nodes[parent]; ok {
		pn.children[name] = true
	}
	return nil
}

// Remove implements store.Client, failing with NotEmpty if p still has
// children, and detaching p from its parent's child set on success.
func (c *FakeClient) Remove(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("remove", p, nil)
	n, ok := c.nodes[p]
	if !ok {
		return &store.Error{Code: store.NoNode, Op: "remove", Path: p}
	}
	if len(n.children) > 0 {
		return &store.Error{Code: store.NotEmpty, Op: "remove", Path: p}
	}
	delete(c.nodes, p)
	parent, name := splitParent(p)
	if pn, ok := c.nodes[parent]; ok {
		delete(pn.children, name)
	}
	return nil
}

// Children implements store.Client.
func (c *FakeClient) Children(p string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("children", p, nil)
	n, ok := c.nodes[p]
	if !ok {
		return nil, &store.Error{Code: store.NoNode, Op: "children", Path: p}
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Stat implements store.Client and classifier.Querier.
func (c *FakeClient) Stat(p string) (classifier.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[p]
	if !ok {
		return classifier.Stat{}, &store.Error{Code: store.NoNode, Op: "stat", Path: p}
	}
	return classifier.Stat{NumChildren: len(n.children), DataLength: len(n.data)}, nil
}

// Close implements store.Client.
func (c *FakeClient) Close() error {
	return nil
}

// FireDataChanged delivers an EventDataChanged notification for p to every
// watcher installed via Connect, simulating the sidecar's single-shot
// watch firing.
func (c *FakeClient) FireDataChanged(p string) {
	c.mu.Lock()
	watchers := append([]func(store.Event){}, c.watchers...)
	c.mu.Unlock()
	for _, w := range watchers {
		w(store.Event{Type: store.EventDataChanged, Path: p})
	}
}

func splitParent(p string) (parent, name string) {
	if p == "/" {
		return "", ""
	}
	dir, base := path.Split(strings.TrimSuffix(p, "/"))
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "/"
	}
	return dir, base
}

var _ store.Client = (*FakeClient)(nil)
