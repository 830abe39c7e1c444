// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"errors"
	"time"

	"github.com/samuel/go-zookeeper/zk"

	"zoofs.io/classifier"
	zlog "zoofs.io/log"
)

// DefaultReadBufferCap is the hard read-side safety cap carried over from
// the original ZooFile::MAX_FILE_SIZE constant, independent of the
// configurable, write-side max_file_size. It documents the expected read
// size only: Get and GetAndWatch do not apply it.
const DefaultReadBufferCap = 4096

// sessionTimeout is the ZooKeeper session timeout used for Connect.
const sessionTimeout = 10 * time.Second

// zkConn is the subset of *zk.Conn the adapter calls, broken out as an
// interface so tests can substitute a fake instead of dialing a real
// ensemble. *zk.Conn satisfies this structurally.
type zkConn interface {
	AddAuth(scheme string, auth []byte) error
	Exists(path string) (bool, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	GetW(path string) ([]byte, *zk.Stat, <-chan zk.Event, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
	Children(path string) ([]string, *zk.Stat, error)
	Close()
}

// ZKClient is the concrete StoreClient adapter wrapping
// github.com/samuel/go-zookeeper/zk, grounded on reference ZooKeeper
// adapters (jesseward-zoofuse, fezho-libkv/store/zookeeper,
// nevir-vault/physical).
type ZKClient struct {
	conn    zkConn
	watcher WatcherFunc // the global watcher installed by Connect
}

// NewZKClient returns an unconnected adapter; call Connect to dial.
func NewZKClient() *ZKClient {
	return &ZKClient{}
}

// Connect implements Client. The installed watcher receives both
// connection-state transitions (forwarded from ZooKeeper's own session
// event channel) and every single-shot watch armed by a later
// GetAndWatch call, matching the single global watcher design.
func (c *ZKClient) Connect(hosts []string, watcher WatcherFunc) error {
	conn, events, err := zk.Connect(hosts, sessionTimeout)
	if err != nil {
		return &Error{Code: Unknown, Op: "connect", Err: err}
	}
	c.conn = conn
	c.watcher = watcher
	if watcher != nil {
		go forwardSessionEvents(events, watcher)
	}
	return nil
}

func forwardSessionEvents(events <-chan zk.Event, watcher WatcherFunc) {
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		watcher(Event{Type: EventSessionState, State: mapState(ev.State), Path: ev.Path})
	}
}

func mapState(s zk.State) SessionState {
	switch s {
	case zk.StateConnected, zk.StateHasSession:
		return StateConnected
	case zk.StateConnecting:
		return StateConnecting
	case zk.StateExpired:
		return StateExpired
	case zk.StateAuthFailed:
		return StateAuthFailed
	default:
		return StateDisconnected
	}
}

// AddAuth implements Client.
func (c *ZKClient) AddAuth(scheme, token string) error {
	if err := c.conn.AddAuth(scheme, []byte(token)); err != nil {
		return &Error{Code: Unknown, Op: "add_auth", Err: err}
	}
	return nil
}

// Exists implements Client. NO_NODE is not surfaced as an error: ZooKeeper's
// Exists call never returns ErrNoNode, so this is simply the zk result.
func (c *ZKClient) Exists(path string) (bool, error) {
	ok, _, err := c.conn.Exists(path)
	if err != nil {
		return false, mapErr("exists", path, err)
	}
	return ok, nil
}

// Get implements Client, returning the content exactly as go-zookeeper
// reports it (the client library itself enforces ZooKeeper's
// jute.maxbuffer; DefaultReadBufferCap documents this system's own
// expectation of that bound and is not applied here).
func (c *ZKClient) Get(path string) ([]byte, error) {
	data, _, err := c.conn.Get(path)
	if err != nil {
		return nil, mapErr("get", path, err)
	}
	return data, nil
}

// GetAndWatch implements Client: reads path's content and arms a
// single-shot data watch, forwarding its firing to the watcher installed
// by Connect.
func (c *ZKClient) GetAndWatch(path string) ([]byte, error) {
	data, _, events, err := c.conn.GetW(path)
	if err != nil {
		return nil, mapErr("get_and_watch", path, err)
	}
	if c.watcher != nil {
		go waitForWatch(path, events, c.watcher)
	}
	return data, nil
}

func waitForWatch(path string, events <-chan zk.Event, watcher WatcherFunc) {
	ev, ok := <-events
	if !ok {
		return
	}
	switch ev.Type {
	case zk.EventNodeDataChanged:
		watcher(Event{Type: EventDataChanged, Path: path})
	case zk.EventNodeDeleted:
		watcher(Event{Type: EventDeleted, Path: path})
	case zk.EventNodeChildrenChanged:
		watcher(Event{Type: EventChildChanged, Path: path})
	}
}

// Set implements Client.
func (c *ZKClient) Set(path string, data []byte) error {
	_, err := c.conn.Set(path, data, -1)
	if err != nil {
		return mapErr("set", path, err)
	}
	return nil
}

// Create implements Client, creating path as an empty node with an open
// ACL.
func (c *ZKClient) Create(path string) error {
	_, err := c.conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil {
		return mapErr("create", path, err)
	}
	return nil
}

// Remove implements Client.
func (c *ZKClient) Remove(path string) error {
	if err := c.conn.Delete(path, -1); err != nil {
		return mapErr("remove", path, err)
	}
	return nil
}

// Children implements Client.
func (c *ZKClient) Children(path string) ([]string, error) {
	names, _, err := c.conn.Children(path)
	if err != nil {
		return nil, mapErr("children", path, err)
	}
	return names, nil
}

// Stat implements Client.
func (c *ZKClient) Stat(path string) (classifier.Stat, error) {
	_, stat, err := c.conn.Get(path)
	if err != nil {
		return classifier.Stat{}, mapErr("stat", path, err)
	}
	return classifier.Stat{
		NumChildren: int(stat.NumChildren),
		DataLength:  int(stat.DataLength),
	}, nil
}

// Close implements Client.
func (c *ZKClient) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Close()
	return nil
}

func mapErr(op, path string, err error) error {
	code := Unknown
	switch {
	case errors.Is(err, zk.ErrNoNode):
		code = NoNode
	case errors.Is(err, zk.ErrNotEmpty):
		code = NotEmpty
	case errors.Is(err, zk.ErrNoAuth), errors.Is(err, zk.ErrAuthFailed):
		code = NotAuthenticated
	case errors.Is(err, zk.ErrSessionExpired), errors.Is(err, zk.ErrConnectionClosed), errors.Is(err, zk.ErrClosing):
		code = InvalidState
	}
	if code == Unknown {
		zlog.Error.Printf("store: %s %q: %v", op, path, err)
	}
	return &Error{Code: code, Op: op, Path: path, Err: err}
}
