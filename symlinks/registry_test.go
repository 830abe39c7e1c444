// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symlinks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zoofs.io/store/storetest"
	"zoofs.io/symlinks"
)

func TestRefreshCreatesSidecarIfAbsent(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")

	reg.Refresh()

	ok, err := client.Exists(reg.SidecarPath())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, reg.Fresh())
}

func TestCreateLookupRoundTrip(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()

	require.NoError(t, reg.Create("/d/y", "/d/x"))

	target, ok := reg.Lookup("/d/y")
	require.True(t, ok)
	require.Equal(t, "/d/x", target)

	data, err := client.Get(reg.SidecarPath())
	require.NoError(t, err)
	require.Equal(t, "/d/y=/d/x", string(data))
}

func TestRemoveDeletesEntryAndSidecarLine(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, reg.Create("/a", "/b"))

	require.NoError(t, reg.Remove("/a"))

	_, ok := reg.Lookup("/a")
	require.False(t, ok)
	data, err := client.Get(reg.SidecarPath())
	require.NoError(t, err)
	require.Equal(t, "", string(data))
}

func TestRemoveOfUnregisteredLinkIsNotAnError(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, reg.Remove("/never-registered"))
}

func TestRenamePreservesOriginalTarget(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, reg.Create("/d/y", "/d/x"))

	require.NoError(t, reg.Rename("/d/y", "/d/z"))

	_, ok := reg.Lookup("/d/y")
	require.False(t, ok)
	target, ok := reg.Lookup("/d/z")
	require.True(t, ok)
	require.Equal(t, "/d/x", target, "rename must preserve the original target, not the new link name")
}

func TestChildrenFiltersByExactParent(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, reg.Create("/d/y", "/d/x"))
	require.NoError(t, reg.Create("/d/sub/z", "/d/x"))
	require.NoError(t, reg.Create("/other/w", "/d/x"))

	names := reg.Children("/d")
	require.Equal(t, []string{"y"}, names)
}

func TestMarkStaleTriggersReReadOnNextRefresh(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, reg.Create("/a", "/b"))
	require.True(t, reg.Fresh())

	// Simulate another process changing the sidecar out from under us.
	require.NoError(t, client.Set(reg.SidecarPath(), []byte("/a=/b\n/c=/d")))
	reg.MarkStale()
	require.False(t, reg.Fresh())

	reg.Refresh()
	require.True(t, reg.Fresh())
	target, ok := reg.Lookup("/c")
	require.True(t, ok)
	require.Equal(t, "/d", target)
}

func TestRefreshSkipsCorruptLines(t *testing.T) {
	client := storetest.New()
	reg := symlinks.New(client, "")
	reg.Refresh()
	require.NoError(t, client.Set(reg.SidecarPath(), []byte("/a=/b\nnotavalidline\n/c=/d")))
	reg.MarkStale()

	reg.Refresh()

	_, ok := reg.Lookup("notavalidline")
	require.False(t, ok)
	target, ok := reg.Lookup("/a")
	require.True(t, ok)
	require.Equal(t, "/b", target)
}
