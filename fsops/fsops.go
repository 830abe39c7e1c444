// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsops implements the POSIX filesystem operation handlers: the
// translation of getattr, readdir, open, read, write, truncate, create,
// unlink, rmdir, mkdir, rename, symlink, readlink and access onto the
// store's RPC primitives, with the file/directory ambiguity resolved by
// classifier.Classifier along the way.
//
// FsOps exposes a kernel-independent interface: every method takes and
// returns plain values plus a *zoofs.io/errors.Error, the way
// upspin.io/cmd/dfuse's upspinFs methods return a bare error that the
// kernel binding (here, cmd/zoofusefs) separately maps onto a
// fuse.Errno. FsOps itself never imports bazil.org/fuse.
package fsops

import (
	"os"

	"zoofs.io/classifier"
	"zoofs.io/errors"
	"zoofs.io/log"
	"zoofs.io/session"
	"zoofs.io/store"
	"zoofs.io/symlinks"
)

// EntryKind classifies a ReadDir entry without requiring an extra round
// trip per child: "." / ".." / the synthetic data node are known
// definitively, but ordinary store children are reported Unknown and left
// for the kernel's follow-up Lookup/Getattr to resolve, the same lazily
// as upspin's cmd/dfuse Lookup defers to Directory.Lookup per name.
type EntryKind int

// Kinds of ReadDir entry.
const (
	KindUnknown EntryKind = iota
	KindFile
	KindDir
)

// Entry is one name emitted by ReadDir.
type Entry struct {
	Name string
	Kind EntryKind
}

// Attr is the subset of POSIX attributes FsOps can synthesize for a path:
// mode bits are entirely synthetic per spec.md's non-goals (no permission
// enforcement), so Mode only ever carries os.ModeDir, os.ModeSymlink or
// neither, plus a fixed permission bits suffix.
type Attr struct {
	Mode  os.FileMode
	Size  uint64
	Nlink uint32
}

// FsOps implements the filesystem operation handlers against a single
// Session.
type FsOps struct {
	sess *session.Session
}

// New returns an FsOps bound to sess.
func New(sess *session.Session) *FsOps {
	return &FsOps{sess: sess}
}

// enter performs the two things every handler contract begins with:
// logging the call, and — in LEAF_AS_HYBRID only — refreshing the
// SymlinkRegistry if its in-memory view is stale.
func (f *FsOps) enter(op, path string) {
	log.Debug.PrintFields("fsops", log.Fields{"op": op, "path": path})
	if f.sess.Config().LeafMode == classifier.LeafAsHybrid {
		f.sess.Symlinks().Refresh()
	}
}

func (f *FsOps) handle(op, path string) (store.Client, error) {
	h, err := f.sess.Handle()
	if err != nil {
		return nil, errors.E(op, path, errors.IO, err)
	}
	return h, nil
}

func (f *FsOps) hybrid() bool {
	return f.sess.Config().LeafMode == classifier.LeafAsHybrid
}

// toErr maps a *store.Error (or any other error) onto the §7 taxonomy for
// every handler except getattr, where NOT_AUTHENTICATED maps to EACCES
// instead of EIO (see getattrErr).
func toErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*store.Error); ok {
		switch se.Code {
		case store.NoNode:
			return errors.E(op, path, errors.NotExist, err)
		case store.NotEmpty:
			return errors.E(op, path, errors.NotEmpty, err)
		default:
			return errors.E(op, path, errors.IO, err)
		}
	}
	return errors.E(op, path, errors.IO, err)
}

func getattrErr(path string, err error) error {
	if se, ok := err.(*store.Error); ok {
		switch se.Code {
		case store.NoNode:
			return errors.E("getattr", path, errors.NotExist, err)
		case store.NotAuthenticated:
			return errors.E("getattr", path, errors.Permission, err)
		case store.NotEmpty:
			return errors.E("getattr", path, errors.NotEmpty, err)
		}
	}
	return errors.E("getattr", path, errors.IO, err)
}

// GetAttr implements the getattr handler contract of spec.md §4.6.
func (f *FsOps) GetAttr(path string) (Attr, error) {
	const op = "getattr"
	f.enter(op, path)

	if _, ok := f.sess.Symlinks().Lookup(path); ok {
		return Attr{Mode: os.ModeSymlink | 0755, Nlink: 2}, nil
	}

	h, err := f.handle(op, path)
	if err != nil {
		return Attr{}, err
	}
	resolved := f.sess.Resolver().Resolve(path)

	exists, err := h.Exists(resolved)
	if err != nil {
		return Attr{}, getattrErr(path, err)
	}
	if !exists {
		return Attr{}, errors.E(op, path, errors.NotExist)
	}

	isDir, err := f.sess.Classifier().IsDirectory(resolved, h)
	if err != nil {
		return Attr{}, getattrErr(path, err)
	}
	if isDir {
		return Attr{Mode: os.ModeDir | 0755, Nlink: 2}, nil
	}

	content, err := h.Get(resolved)
	if err != nil {
		return Attr{}, getattrErr(path, err)
	}
	return Attr{Mode: 0777, Size: uint64(len(content)), Nlink: 1}, nil
}

// ReadDir implements the readdir handler contract of spec.md §4.6.
func (f *FsOps) ReadDir(path string) ([]Entry, error) {
	const op = "readdir"
	f.enter(op, path)

	h, err := f.handle(op, path)
	if err != nil {
		return nil, err
	}
	resolved := f.sess.Resolver().Resolve(path)

	names, err := h.Children(resolved)
	if err != nil {
		return nil, toErr(op, path, err)
	}

	entries := []Entry{
		{Name: ".", Kind: KindDir},
		{Name: "..", Kind: KindDir},
	}

	mode := f.sess.Classifier().Mode()
	if mode != classifier.LeafAsHybrid {
		entries = append(entries, Entry{Name: classifier.DataNodeName, Kind: KindFile})
	} else {
		for _, name := range f.sess.Symlinks().Children(path) {
			entries = append(entries, Entry{Name: name, Kind: KindFile})
		}
	}

	for _, name := range names {
		if mode != classifier.LeafAsHybrid && name == classifier.DataNodeName {
			return nil, errors.E(op, path, errors.IO,
				errors.Errorf("store child %q collides with the synthetic data node", name))
		}
		if mode == classifier.LeafAsHybrid && name == symlinks.SidecarName {
			continue
		}
		entries = append(entries, Entry{Name: name, Kind: KindUnknown})
	}
	return entries, nil
}

// Open implements the open handler contract: a no-op outside HYBRID;
// in HYBRID, creates the node if absent and marks it a known file.
func (f *FsOps) Open(path string) error {
	const op = "open"
	f.enter(op, path)
	if !f.hybrid() {
		return nil
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	if err := f.createIfAbsent(op, path, resolved, h); err != nil {
		return err
	}
	f.sess.Memory().MarkFile(resolved)
	return nil
}

// OpenDir implements the opendir handler: a no-op outside HYBRID; in
// HYBRID, creates the node if absent and marks it a known directory.
func (f *FsOps) OpenDir(path string) error {
	const op = "opendir"
	f.enter(op, path)
	if !f.hybrid() {
		return nil
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	if err := f.createIfAbsent(op, path, resolved, h); err != nil {
		return err
	}
	f.sess.Memory().MarkDirectory(resolved)
	return nil
}

// Read implements the read handler contract: C[offset : min(offset+size,
// len(C))], empty once offset is at or past the end of content.
func (f *FsOps) Read(path string, size, offset int) ([]byte, error) {
	const op = "read"
	f.enter(op, path)
	h, err := f.handle(op, path)
	if err != nil {
		return nil, err
	}
	resolved := f.sess.Resolver().Resolve(path)
	content, err := h.Get(resolved)
	if err != nil {
		return nil, toErr(op, path, err)
	}
	if offset >= len(content) {
		return nil, nil
	}
	end := offset + size
	if end > len(content) {
		end = len(content)
	}
	return content[offset:end], nil
}

// Write implements the write handler contract: rejects writes that would
// push content past the configured max_file_size, otherwise resizes
// content to offset+size and overwrites the written range.
func (f *FsOps) Write(path string, buf []byte, offset int) (int, error) {
	const op = "write"
	f.enter(op, path)

	size := len(buf)
	maxSize := f.sess.Config().MaxFileSize
	if offset+size > maxSize {
		return 0, errors.E(op, path, errors.Invalid,
			errors.Errorf("write of %d bytes at offset %d exceeds max_file_size %d", size, offset, maxSize))
	}

	h, err := f.handle(op, path)
	if err != nil {
		return 0, err
	}
	resolved := f.sess.Resolver().Resolve(path)
	content, err := h.Get(resolved)
	if err != nil {
		if se, ok := err.(*store.Error); !ok || se.Code != store.NoNode {
			return 0, toErr(op, path, err)
		}
		content = nil
	}
	content = growTo(content, offset+size)
	copy(content[offset:offset+size], buf)
	if err := h.Set(resolved, content); err != nil {
		return 0, toErr(op, path, err)
	}
	return size, nil
}

// Truncate implements the truncate handler contract: pads with zero bytes
// on growth, truncates on shrink.
func (f *FsOps) Truncate(path string, size int) error {
	const op = "truncate"
	f.enter(op, path)
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	content, err := h.Get(resolved)
	if err != nil {
		return toErr(op, path, err)
	}
	content = growTo(content, size)
	if err := h.Set(resolved, content); err != nil {
		return toErr(op, path, err)
	}
	return nil
}

func growTo(content []byte, size int) []byte {
	if size <= len(content) {
		return content[:size]
	}
	grown := make([]byte, size)
	copy(grown, content)
	return grown
}

// Create implements the create handler contract: forbidden in
// LEAF_AS_DIR (PolicyDenied, §7), otherwise creates the node if absent
// and marks it a known file in HYBRID.
func (f *FsOps) Create(path string) error {
	const op = "create"
	f.enter(op, path)
	if f.sess.Classifier().Mode() == classifier.LeafAsDir {
		return errors.E(op, path, errors.NotExist,
			errors.Str("create is forbidden in LEAF_AS_DIR; mkdir then write _zoo_data_"))
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	if err := f.createIfAbsent(op, path, resolved, h); err != nil {
		return err
	}
	if f.hybrid() {
		f.sess.Memory().MarkFile(resolved)
	}
	return nil
}

// Mkdir implements the mkdir handler contract: creates the node if
// absent and marks it a known directory in HYBRID.
func (f *FsOps) Mkdir(path string) error {
	const op = "mkdir"
	f.enter(op, path)
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	if err := f.createIfAbsent(op, path, resolved, h); err != nil {
		return err
	}
	if f.hybrid() {
		f.sess.Memory().MarkDirectory(resolved)
	}
	return nil
}

func (f *FsOps) createIfAbsent(op, path, resolved string, h store.Client) error {
	exists, err := h.Exists(resolved)
	if err != nil {
		return toErr(op, path, err)
	}
	if exists {
		return nil
	}
	if err := h.Create(resolved); err != nil {
		return toErr(op, path, err)
	}
	return nil
}

// Unlink implements the unlink handler contract: removes a registered
// symlink's entry, or else the store node, mapping NOT_EMPTY to
// ENOTEMPTY.
func (f *FsOps) Unlink(path string) error {
	return f.remove("unlink", path)
}

// Rmdir implements the rmdir handler contract, identical to Unlink per
// spec.md §4.6.
func (f *FsOps) Rmdir(path string) error {
	return f.remove("rmdir", path)
}

func (f *FsOps) remove(op, path string) error {
	f.enter(op, path)
	if _, ok := f.sess.Symlinks().Lookup(path); ok {
		return toErr(op, path, f.sess.Symlinks().Remove(path))
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	if err := h.Remove(resolved); err != nil {
		return toErr(op, path, err)
	}
	if f.hybrid() {
		f.sess.Memory().Forget(resolved)
	}
	return nil
}

// Rename implements the rename handler contract: directory rename is
// Unsupported (ENOSYS, spec.md non-goals); a pre-existing dst (node or
// symlink) is deleted first; a symlinked src moves its registry entry
// preserving the original target (the rename-of-symlink bug fix of
// SPEC_FULL.md's Open Question 4); otherwise dst is created, src's
// content is copied over, dst is marked a known file, and src is
// removed.
func (f *FsOps) Rename(src, dst string) error {
	const op = "rename"
	f.enter(op, src)

	h, err := f.handle(op, src)
	if err != nil {
		return err
	}
	resolvedSrc := f.sess.Resolver().Resolve(src)

	if _, isSymlink := f.sess.Symlinks().Lookup(src); !isSymlink {
		exists, err := h.Exists(resolvedSrc)
		if err == nil && exists {
			if dir, derr := f.sess.Classifier().IsDirectory(resolvedSrc, h); derr == nil && dir {
				return errors.E(op, src, errors.Unsupported, errors.Str("directory rename is not supported"))
			}
		}
	}

	if err := f.deleteIfPresent(op, dst, h); err != nil {
		return err
	}

	if _, isSymlink := f.sess.Symlinks().Lookup(src); isSymlink {
		return toErr(op, src, f.sess.Symlinks().Rename(src, dst))
	}

	resolvedDst := f.sess.Resolver().Resolve(dst)
	content, err := h.Get(resolvedSrc)
	if err != nil {
		return toErr(op, src, err)
	}
	if err := h.Create(resolvedDst); err != nil {
		return toErr(op, dst, err)
	}
	if err := h.Set(resolvedDst, content); err != nil {
		return toErr(op, dst, err)
	}
	if f.hybrid() {
		f.sess.Memory().MarkFile(resolvedDst)
	}
	if err := h.Remove(resolvedSrc); err != nil {
		return toErr(op, src, err)
	}
	if f.hybrid() {
		f.sess.Memory().Forget(resolvedSrc)
	}
	return nil
}

func (f *FsOps) deleteIfPresent(op, path string, h store.Client) error {
	if _, ok := f.sess.Symlinks().Lookup(path); ok {
		return toErr(op, path, f.sess.Symlinks().Remove(path))
	}
	resolved := f.sess.Resolver().Resolve(path)
	exists, err := h.Exists(resolved)
	if err != nil {
		return toErr(op, path, err)
	}
	if !exists {
		return nil
	}
	if err := h.Remove(resolved); err != nil {
		return toErr(op, path, err)
	}
	if f.hybrid() {
		f.sess.Memory().Forget(resolved)
	}
	return nil
}

// Symlink implements the symlink handler contract: registers link ->
// target and persists the sidecar. Symlinks exist only in LEAF_AS_HYBRID;
// in the other leaf modes Symlink fails with Unsupported.
func (f *FsOps) Symlink(target, link string) error {
	const op = "symlink"
	f.enter(op, link)
	if !f.hybrid() {
		return errors.E(op, link, errors.Unsupported, errors.Str("symlinks require LEAF_AS_HYBRID"))
	}
	return toErr(op, link, f.sess.Symlinks().Create(link, target))
}

// Readlink implements the readlink handler contract. Per SPEC_FULL.md's
// resolution of Open Question 2, truncation is strict POSIX: it copies
// min(len(target), size) bytes and returns success, never a
// warning-and-full-copy.
func (f *FsOps) Readlink(path string, size int) (string, error) {
	const op = "readlink"
	f.enter(op, path)

	target, ok := f.sess.Symlinks().Lookup(path)
	if ok {
		if size >= 0 && size < len(target) {
			target = target[:size]
		}
		return target, nil
	}

	h, err := f.handle(op, path)
	if err != nil {
		return "", err
	}
	resolved := f.sess.Resolver().Resolve(path)
	exists, err := h.Exists(resolved)
	if err != nil {
		return "", toErr(op, path, err)
	}
	if exists {
		return "", errors.E(op, path, errors.Invalid, errors.Str("not a symlink"))
	}
	return "", errors.E(op, path, errors.NotExist)
}

// Access implements the access handler contract: a registered symlink or
// an existing node grants access unconditionally (spec.md non-goals: no
// permission enforcement); store errors map to EIO.
func (f *FsOps) Access(path string) error {
	const op = "access"
	f.enter(op, path)

	if _, ok := f.sess.Symlinks().Lookup(path); ok {
		return nil
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	exists, err := h.Exists(resolved)
	if err != nil {
		return errors.E(op, path, errors.IO, err)
	}
	if !exists {
		return errors.E(op, path, errors.NotExist)
	}
	return nil
}

// Chmod, Chown and Utime are accepted and ignored: spec.md's non-goals
// exclude permission enforcement, so mode/owner/time bits are entirely
// synthetic.
func (f *FsOps) Chmod(path string, mode os.FileMode) error { f.enter("chmod", path); return nil }
func (f *FsOps) Chown(path string, uid, gid int) error     { f.enter("chown", path); return nil }
func (f *FsOps) Utime(path string) error                   { f.enter("utime", path); return nil }

// Release and ReleaseDir are no-ops: FsOps holds no open-handle state of
// its own between calls.
func (f *FsOps) Release(path string) error    { f.enter("release", path); return nil }
func (f *FsOps) ReleaseDir(path string) error { f.enter("releasedir", path); return nil }

// Flock and Lock are no-ops (spec.md carries no locking semantics beyond
// what the store itself guarantees); in HYBRID, a lock request on an
// absent path creates it and marks it a known file, matching Open's
// create-then-classify behavior for a node this syscall is clearly
// treating as a file.
func (f *FsOps) Flock(path string) error { return f.lockLike("flock", path) }
func (f *FsOps) Lock(path string) error  { return f.lockLike("lock", path) }

func (f *FsOps) lockLike(op, path string) error {
	f.enter(op, path)
	if !f.hybrid() {
		return nil
	}
	h, err := f.handle(op, path)
	if err != nil {
		return err
	}
	resolved := f.sess.Resolver().Resolve(path)
	exists, err := h.Exists(resolved)
	if err != nil {
		return toErr(op, path, err)
	}
	if exists {
		return nil
	}
	if err := h.Create(resolved); err != nil {
		return toErr(op, path, err)
	}
	f.sess.Memory().MarkFile(resolved)
	return nil
}
