// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsops_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"zoofs.io/classifier"
	"zoofs.io/errors"
	"zoofs.io/fsops"
	"zoofs.io/session"
	"zoofs.io/store"
	"zoofs.io/store/storetest"
)

func newSession(t *testing.T, mode classifier.LeafMode, maxSize int) (*fsops.FsOps, *storetest.FakeClient, *session.Session) {
	t.Helper()
	client := storetest.New()
	sess := session.New(session.Config{
		Hosts:       []string{"localhost:2181"},
		RootPath:    "/",
		LeafMode:    mode,
		MaxFileSize: maxSize,
	}, client)
	return fsops.New(sess), client, sess
}

// Scenario (a): LEAF_AS_DIR data-node aliasing, spec.md §8(a).
func TestScenarioDataNodeAliasing(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsDir, 1<<20)

	require.NoError(t, f.Mkdir("/a"))
	n, err := f.Write("/a/_zoo_data_", []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	data, err := f.Read("/a/_zoo_data_", 5, 0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	entries, err := f.ReadDir("/a")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.ElementsMatch(t, []string{".", "..", "_zoo_data_"}, names)
}

// Scenario (b): LEAF_AS_DIR create is forbidden, spec.md §8(b).
func TestScenarioCreateForbiddenInLeafAsDir(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsDir, 1<<20)
	err := f.Create("/b")
	require.Error(t, err)
	require.Equal(t, errors.NotExist, errors.KindOf(err))
}

// Scenarios (c), (d), (e): HYBRID classification, symlinks and rename,
// spec.md §8(c)-(e), chained exactly as the spec narrates them.
func TestHybridScenarioChain(t *testing.T) {
	f, client, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)

	// (c)
	require.NoError(t, f.Mkdir("/d"))
	attr, err := f.GetAttr("/d")
	require.NoError(t, err)
	require.True(t, attr.Mode&os.ModeDir != 0)

	require.NoError(t, f.Create("/d/x"))
	n, err := f.Write("/d/x", []byte("k"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	attr, err = f.GetAttr("/d/x")
	require.NoError(t, err)
	require.Zero(t, attr.Mode&os.ModeDir)
	require.Zero(t, attr.Mode&os.ModeSymlink)
	require.EqualValues(t, 1, attr.Size)

	entries, err := f.ReadDir("/d")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Contains(t, names, "x")
	require.NotContains(t, names, "__symlinks__")

	// (d)
	require.NoError(t, f.Symlink("/d/x", "/d/y"))
	target, err := f.Readlink("/d/y", 100)
	require.NoError(t, err)
	require.Equal(t, "/d/x", target)

	attr, err = f.GetAttr("/d/y")
	require.NoError(t, err)
	require.NotZero(t, attr.Mode&os.ModeSymlink)

	sidecar, err := client.Get("/__symlinks__")
	require.NoError(t, err)
	require.Equal(t, "/d/y=/d/x", string(sidecar))

	// (e)
	require.NoError(t, f.Rename("/d/x", "/d/z"))
	exists, err := client.Exists("/d/x")
	require.NoError(t, err)
	require.False(t, exists)

	data, err := f.Read("/d/z", 1, 0)
	require.NoError(t, err)
	require.Equal(t, "k", string(data))
	require.True(t, sess.Memory().IsKnownFile("/d/z"))
}

// Scenario (f): a write that would exceed max_file_size fails with
// Invalid (EINVAL), spec.md §8(f).
func TestScenarioOversizedWrite(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsHybrid, 10)
	require.NoError(t, client.Create("/f"))

	_, err := f.Write("/f", make([]byte, 6), 7)
	require.Error(t, err)
	require.Equal(t, errors.Invalid, errors.KindOf(err))
}

// Invariant 5: read slicing, spec.md §8.5.
func TestReadSlicing(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, client.Create("/p"))
	require.NoError(t, client.Set("/p", []byte("abcdef")))

	data, err := f.Read("/p", 3, 2)
	require.NoError(t, err)
	require.Equal(t, "cde", string(data))

	data, err = f.Read("/p", 10, 2)
	require.NoError(t, err)
	require.Equal(t, "cdef", string(data))

	data, err = f.Read("/p", 10, 100)
	require.NoError(t, err)
	require.Empty(t, data)
}

// Invariant 6: write round-trip and size reporting, spec.md §8.6.
func TestWriteRoundTrip(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, f.Mkdir("/p")) // LeafAsFile: Mkdir just creates the node

	n, err := f.Write("/p", []byte("xyz"), 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	data, err := f.Read("/p", 3, 2)
	require.NoError(t, err)
	require.Equal(t, "xyz", string(data))

	attr, err := f.GetAttr("/p")
	require.NoError(t, err)
	require.EqualValues(t, 5, attr.Size)
}

// Invariant 7: truncate idempotence, spec.md §8.7.
func TestTruncateIdempotent(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, f.Mkdir("/p"))
	_, err := f.Write("/p", []byte("abcdef"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate("/p", 3))
	data1, err := f.Read("/p", 10, 0)
	require.NoError(t, err)

	require.NoError(t, f.Truncate("/p", 3))
	data2, err := f.Read("/p", 10, 0)
	require.NoError(t, err)

	require.Equal(t, data1, data2)
	attr, err := f.GetAttr("/p")
	require.NoError(t, err)
	require.EqualValues(t, 3, attr.Size)
}

// Invariant 1: classification exclusivity, spec.md §8.1.
func TestClassificationExclusivity(t *testing.T) {
	f, _, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, f.Mkdir("/both"))
	require.True(t, sess.Memory().IsKnownDirectory("/both"))

	require.NoError(t, f.Create("/both"))
	require.True(t, sess.Memory().IsKnownFile("/both"))
	require.False(t, sess.Memory().IsKnownDirectory("/both"))
}

// Invariant 4: no write ever issues content over max_file_size.
func TestContentBound(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsHybrid, 4)
	require.NoError(t, client.Create("/p"))

	_, err := f.Write("/p", []byte("abcde"), 0)
	require.Error(t, err)

	n, err := f.Write("/p", []byte("abcd"), 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	sawSet := false
	for _, call := range client.Calls {
		if call.Method == "set" {
			sawSet = true
			require.LessOrEqual(t, len(call.Data), 4)
		}
	}
	require.True(t, sawSet, "the boundary write must have gone through to the store")
}

func TestGetAttrSymlinkShortCircuitsResolution(t *testing.T) {
	f, _, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, sess.Symlinks().Create("/link", "/somewhere"))

	attr, err := f.GetAttr("/link")
	require.NoError(t, err)
	require.NotZero(t, attr.Mode&os.ModeSymlink)
	require.EqualValues(t, 2, attr.Nlink)
}

func TestGetAttrAbsentIsNotExist(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	_, err := f.GetAttr("/missing")
	require.Error(t, err)
	require.Equal(t, errors.NotExist, errors.KindOf(err))
}

func TestRmdirMapsNotEmptyToENOTEMPTY(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, client.Create("/d"))
	require.NoError(t, client.Create("/d/x"))

	err := f.Rmdir("/d")
	require.Error(t, err)
	require.Equal(t, errors.NotEmpty, errors.KindOf(err))
}

func TestUnlinkRemovesSymlinkEntry(t *testing.T) {
	f, client, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, sess.Symlinks().Create("/link", "/target"))

	require.NoError(t, f.Unlink("/link"))

	_, ok := sess.Symlinks().Lookup("/link")
	require.False(t, ok)
	data, err := client.Get("/__symlinks__")
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestRenameOfDirectoryIsUnsupported(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, f.Mkdir("/dir1"))

	err := f.Rename("/dir1", "/dir2")
	require.Error(t, err)
	require.Equal(t, errors.Unsupported, errors.KindOf(err))
}

func TestReadlinkTruncatesStrictly(t *testing.T) {
	f, _, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, sess.Symlinks().Create("/link", "/a/very/long/target"))

	target, err := f.Readlink("/link", 6)
	require.NoError(t, err)
	require.Equal(t, "/a/ver", target)
}

func TestReadlinkOnRegularNodeIsInvalid(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, client.Create("/p"))

	_, err := f.Readlink("/p", 10)
	require.Error(t, err)
	require.Equal(t, errors.Invalid, errors.KindOf(err))
}

func TestAccessExistingNodeGrantsAccess(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, client.Create("/p"))
	require.NoError(t, f.Access("/p"))
}

func TestAccessAbsentNodeIsNotExist(t *testing.T) {
	f, _, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	err := f.Access("/missing")
	require.Error(t, err)
	require.Equal(t, errors.NotExist, errors.KindOf(err))
}

func TestOpenInHybridCreatesAndMarksFile(t *testing.T) {
	f, client, sess := newSession(t, classifier.LeafAsHybrid, 1<<20)
	require.NoError(t, f.Open("/new"))

	exists, err := client.Exists("/new")
	require.NoError(t, err)
	require.True(t, exists)
	require.True(t, sess.Memory().IsKnownFile("/new"))
}

func TestOpenIsNoopOutsideHybrid(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsDir, 1<<20)
	require.NoError(t, f.Open("/new"))

	exists, err := client.Exists("/new")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestErrorsSurfaceAsStoreErrorCode(t *testing.T) {
	f, client, _ := newSession(t, classifier.LeafAsFile, 1<<20)
	require.NoError(t, client.Create("/d"))
	require.NoError(t, client.Create("/d/child"))

	err := f.Unlink("/d")
	require.Error(t, err)
	var zerr *store.Error
	require.ErrorAs(t, err, &zerr)
	require.Equal(t, store.NotEmpty, zerr.Code)
}
