// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/samuel/go-zookeeper/zk"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal zkConn stand-in, grounded on the same
// mock-the-handle shape the jesseward-zoofuse reference adapter uses to
// test its ZooKeeper wrapper without a live ensemble.
type fakeConn struct {
	existsFn   func(string) (bool, *zk.Stat, error)
	getFn      func(string) ([]byte, *zk.Stat, error)
	getWFn     func(string) ([]byte, *zk.Stat, <-chan zk.Event, error)
	setFn      func(string, []byte, int32) (*zk.Stat, error)
	createFn   func(string, []byte, int32, []zk.ACL) (string, error)
	deleteFn   func(string, int32) error
	childrenFn func(string) ([]string, *zk.Stat, error)
	addAuthFn  func(string, []byte) error
	closed     bool
}

func (f *fakeConn) AddAuth(scheme string, auth []byte) error { return f.addAuthFn(scheme, auth) }
func (f *fakeConn) Exists(path string) (bool, *zk.Stat, error) { return f.existsFn(path) }
func (f *fakeConn) Get(path string) ([]byte, *zk.Stat, error)  { return f.getFn(path) }
func (f *fakeConn) GetW(path string) ([]byte, *zk.Stat, <-chan zk.Event, error) {
	return f.getWFn(path)
}
func (f *fakeConn) Set(path string, data []byte, version int32) (*zk.Stat, error) {
	return f.setFn(path, data, version)
}
func (f *fakeConn) Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error) {
	return f.createFn(path, data, flags, acl)
}
func (f *fakeConn) Delete(path string, version int32) error { return f.deleteFn(path, version) }
func (f *fakeConn) Children(path string) ([]string, *zk.Stat, error) {
	return f.childrenFn(path)
}
func (f *fakeConn) Close() { f.closed = true }

func TestZKClientExistsMapsNoNodeToFalse(t *testing.T) {
	c := &ZKClient{conn: &fakeConn{
		existsFn: func(string) (bool, *zk.Stat, error) { return false, nil, nil },
	}}
	ok, err := c.Exists("/a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestZKClientGetMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code Code
	}{
		{"no node", zk.ErrNoNode, NoNode},
		{"not empty", zk.ErrNotEmpty, NotEmpty},
		{"no auth", zk.ErrNoAuth, NotAuthenticated},
		{"session expired", zk.ErrSessionExpired, InvalidState},
		{"unknown", zk.ErrBadVersion, Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &ZKClient{conn: &fakeConn{
				getFn: func(string) ([]byte, *zk.Stat, error) { return nil, nil, tc.err },
			}}
			_, err := c.Get("/a")
			require.Error(t, err)
			se, ok := err.(*Error)
			require.True(t, ok)
			require.Equal(t, tc.code, se.Code)
		})
	}
}

func TestZKClientGetAndWatchReadsContent(t *testing.T) {
	events := make(chan zk.Event)
	c := &ZKClient{
		conn: &fakeConn{
			getWFn: func(string) ([]byte, *zk.Stat, <-chan zk.Event, error) {
				return []byte("hello"), &zk.Stat{}, events, nil
			},
		},
	}
	data, err := c.GetAndWatch("/a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	close(events) // unblock the watch goroutine GetAndWatch spawned
}

// waitForWatch is unit tested directly, independent of GetAndWatch's own
// internal goroutine, to pin down the event-type mapping.
func TestWaitForWatchMapsEventTypes(t *testing.T) {
	cases := []struct {
		name string
		zt   zk.EventType
		want EventType
	}{
		{"data changed", zk.EventNodeDataChanged, EventDataChanged},
		{"deleted", zk.EventNodeDeleted, EventDeleted},
		{"children changed", zk.EventNodeChildrenChanged, EventChildChanged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := make(chan zk.Event, 1)
			events <- zk.Event{Type: tc.zt, Path: "/a"}
			var got *Event
			waitForWatch("/a", events, func(ev Event) { got = &ev })
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.Type)
			require.Equal(t, "/a", got.Path)
		})
	}
}

func TestZKClientStat(t *testing.T) {
	c := &ZKClient{conn: &fakeConn{
		getFn: func(string) ([]byte, *zk.Stat, error) {
			return []byte("xy"), &zk.Stat{NumChildren: 3, DataLength: 2}, nil
		},
	}}
	stat, err := c.Stat("/a")
	require.NoError(t, err)
	require.Equal(t, 3, stat.NumChildren)
	require.Equal(t, 2, stat.DataLength)
}

func TestZKClientCreateUsesOpenACL(t *testing.T) {
	var gotACL []zk.ACL
	c := &ZKClient{conn: &fakeConn{
		createFn: func(path string, data []byte, flags int32, acl []zk.ACL) (string, error) {
			gotACL = acl
			return path, nil
		},
	}}
	require.NoError(t, c.Create("/a"))
	require.Equal(t, zk.WorldACL(zk.PermAll), gotACL)
}

func TestZKClientCloseIsNilSafe(t *testing.T) {
	c := NewZKClient()
	require.NoError(t, c.Close())
}
