// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store defines the StoreClient adapter: the thin interface the
// core consumes to talk to a ZooKeeper-like remote tree store, decoupled
// from any particular wire client. zk.go provides the concrete adapter
// over github.com/samuel/go-zookeeper/zk.
package store

import "zoofs.io/classifier"

// Code is a typed store error code, the ZooKeeper response codes this
// system distinguishes.
type Code string

// Store error codes used by the core.
const (
	OK               Code = "OK"
	NoNode           Code = "NO_NODE"
	NotEmpty         Code = "NOT_EMPTY"
	NotAuthenticated Code = "NOT_AUTHENTICATED"
	InvalidState     Code = "INVALID_STATE"
	Unknown          Code = "UNKNOWN"
)

// Error is a typed store error: every StoreClient method fails with one of
// these, never a bare error, so FsOps can switch on Code without string
// matching.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is/As see through a *Error to its cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// EventType distinguishes the kinds of notification the global watcher
// may receive.
type EventType int

// Event types delivered to a WatcherFunc.
const (
	EventSessionState EventType = iota // connection state changed
	EventDataChanged                   // a watched node's content changed
	EventChildChanged                  // a watched node's children changed
	EventDeleted                       // a watched node was deleted
)

// SessionState mirrors the connection states a WatcherFunc cares about.
type SessionState int

// Session states relevant to the connection barrier.
const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateExpired
	StateAuthFailed
)

// Event is delivered to the session's global watcher: the single function
// installed at Connect time, covering both connection-state changes and
// data-change notifications for watched paths.
type Event struct {
	Type  EventType
	State SessionState
	Path  string
}

// WatcherFunc is the session-level watcher: it receives every
// connection-state transition and every fired single-shot watch.
type WatcherFunc func(Event)

// Client is the StoreClient adapter the core consumes. It is satisfied by
// *ZKClient, and by fakes in tests.
type Client interface {
	// Connect dials hosts and installs watcher as the global watcher. It
	// does not block for the session to reach StateConnected; callers
	// that need that guarantee use the connection barrier in the
	// session package.
	Connect(hosts []string, watcher WatcherFunc) error

	// AddAuth submits an auth credential on the current session.
	AddAuth(scheme, token string) error

	// Exists reports whether path exists. NoNode is not an error here:
	// it is reported as (false, nil).
	Exists(path string) (bool, error)

	// Get returns path's content.
	Get(path string) ([]byte, error)

	// GetAndWatch is like Get but additionally arms a single-shot
	// data-change watch on path, whose firing is delivered to the
	// global watcher as an EventDataChanged Event.
	GetAndWatch(path string) ([]byte, error)

	// Set unconditionally overwrites path's content.
	Set(path string, data []byte) error

	// Create creates path as an empty node with an open ACL.
	Create(path string) error

	// Remove unconditionally deletes path. Fails with Code NotEmpty if
	// path still has children.
	Remove(path string) error

	// Children lists path's child names.
	Children(path string) ([]string, error)

	// Stat returns a node's metadata, satisfying classifier.Querier
	// together with Children.
	Stat(path string) (classifier.Stat, error)

	// Close tears down the session. Errors are for logging only;
	// teardown never raises.
	Close() error
}

var _ classifier.Querier = Client(nil)
