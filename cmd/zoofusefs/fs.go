// The zoofusefs FUSE driver: mounts a ZooKeeper-like tree as a POSIX
// filesystem. Grounded on upspin's cmd/dfuse upspinFs/node/handle triad,
// adapted from upspin's opaque Directory/Store model to FsOps's
// path-addressed one: where upspinFs allocates and caches a *node per
// (parent, name) pair with a synthetic fuse.NodeID, zooNode is stateless
// and path-addressed, since the store itself is the authority on every
// node's existence and content.
package main

import (
	"context"
	"os"
	"path"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"zoofs.io/fsops"
)

// zooFS is the mounted filesystem root, implementing fs.FS.
type zooFS struct {
	ops      *fsops.FsOps
	uid, gid uint32
}

func newZooFS(ops *fsops.FsOps) *zooFS {
	return &zooFS{ops: ops, uid: uint32(os.Getuid()), gid: uint32(os.Getgid())}
}

// Root implements fs.FS.
func (zfs *zooFS) Root() (fs.Node, error) {
	return &zooNode{fs: zfs, path: "/"}, nil
}

// zooNode is a lazily-resolved node for a single kernel path: it carries
// no cached state of its own, deferring every question to FsOps so two
// Lookups of the same name never drift out of sync with the store.
type zooNode struct {
	fs   *zooFS
	path string
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return path.Join(parent, name)
}

func (n *zooNode) applyAttr(a *fuse.Attr, attr fsops.Attr) {
	a.Mode = attr.Mode
	a.Size = attr.Size
	a.Nlink = attr.Nlink
	if a.Nlink == 0 {
		a.Nlink = 1
	}
	a.Uid = n.fs.uid
	a.Gid = n.fs.gid
}

// Attr implements fs.Node.
func (n *zooNode) Attr(ctx context.Context, a *fuse.Attr) error {
	attr, err := n.fs.ops.GetAttr(n.path)
	if err != nil {
		return errno(err)
	}
	n.applyAttr(a, attr)
	return nil
}

// Lookup implements fs.NodeStringLookuper.
func (n *zooNode) Lookup(ctx context.Context, name string) (fs.Node, error) {
	cp := childPath(n.path, name)
	if _, err := n.fs.ops.GetAttr(cp); err != nil {
		return nil, errno(err)
	}
	return &zooNode{fs: n.fs, path: cp}, nil
}

// ReadDirAll implements fs.HandleReadDirAller. zooNode serves as its own
// directory handle, since FsOps.ReadDir needs no open-time state.
func (n *zooNode) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	if err := n.fs.ops.OpenDir(n.path); err != nil {
		return nil, errno(err)
	}
	entries, err := n.fs.ops.ReadDir(n.path)
	if err != nil {
		return nil, errno(err)
	}
	dirents := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		dt := fuse.DT_Unknown
		switch e.Kind {
		case fsops.KindDir:
			dt = fuse.DT_Dir
		case fsops.KindFile:
			dt = fuse.DT_File
		}
		dirents = append(dirents, fuse.Dirent{Name: e.Name, Type: dt})
	}
	return dirents, nil
}

// Open implements fs.NodeOpener. A zooNode doubles as its own handle: all
// the state a read/write/release call needs (the path) is already on it.
func (n *zooNode) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if req.Dir {
		if err := n.fs.ops.OpenDir(n.path); err != nil {
			return nil, errno(err)
		}
		return n, nil
	}
	if err := n.fs.ops.Open(n.path); err != nil {
		return nil, errno(err)
	}
	return n, nil
}

// Create implements fs.NodeCreater.
func (n *zooNode) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	cp := childPath(n.path, req.Name)
	if err := n.fs.ops.Create(cp); err != nil {
		return nil, nil, errno(err)
	}
	nn := &zooNode{fs: n.fs, path: cp}
	return nn, nn, nil
}

// Mkdir implements fs.NodeMkdirer.
func (n *zooNode) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	cp := childPath(n.path, req.Name)
	if err := n.fs.ops.Mkdir(cp); err != nil {
		return nil, errno(err)
	}
	return &zooNode{fs: n.fs, path: cp}, nil
}

// Remove implements fs.NodeRemover: req.Dir distinguishes rmdir from
// unlink, matching the unlink/rmdir handler pair of spec.md §4.6.
func (n *zooNode) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	cp := childPath(n.path, req.Name)
	var err error
	if req.Dir {
		err = n.fs.ops.Rmdir(cp)
	} else {
		err = n.fs.ops.Unlink(cp)
	}
	return errno(err)
}

// Rename implements fs.NodeRenamer.
func (n *zooNode) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	nd, ok := newDir.(*zooNode)
	if !ok {
		return errno(n.fs.ops.Rename(childPath(n.path, req.OldName), childPath(n.path, req.NewName)))
	}
	src := childPath(n.path, req.OldName)
	dst := childPath(nd.path, req.NewName)
	return errno(n.fs.ops.Rename(src, dst))
}

// Symlink implements fs.NodeSymlinker.
func (n *zooNode) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	cp := childPath(n.path, req.NewName)
	if err := n.fs.ops.Symlink(req.Target, cp); err != nil {
		return nil, errno(err)
	}
	return &zooNode{fs: n.fs, path: cp}, nil
}

// Readlink implements fs.NodeReadlinker. bazil.org/fuse does not itself
// pass a buffer-size limit on this call; readlink truncation (OQ2) is
// exercised through FsOps directly in its own tests, here the full
// target is always requested.
func (n *zooNode) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := n.fs.ops.Readlink(n.path, 1<<20)
	if err != nil {
		return "", errno(err)
	}
	return target, nil
}

// Access implements fs.NodeAccesser.
func (n *zooNode) Access(ctx context.Context, req *fuse.AccessRequest) error {
	return errno(n.fs.ops.Access(n.path))
}

// Setattr implements fs.NodeSetattrer: truncate (resize) is the only bit
// with real semantics; chmod/chown/utime are accepted and ignored per
// spec.md's non-goals.
func (n *zooNode) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := n.fs.ops.Truncate(n.path, int(req.Size)); err != nil {
			return errno(err)
		}
	}
	if req.Valid.Mode() {
		if err := n.fs.ops.Chmod(n.path, req.Mode); err != nil {
			return errno(err)
		}
	}
	if req.Valid.Uid() || req.Valid.Gid() {
		if err := n.fs.ops.Chown(n.path, int(req.Uid), int(req.Gid)); err != nil {
			return errno(err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		if err := n.fs.ops.Utime(n.path); err != nil {
			return errno(err)
		}
	}
	attr, err := n.fs.ops.GetAttr(n.path)
	if err != nil {
		return errno(err)
	}
	n.applyAttr(&resp.Attr, attr)
	return nil
}

// Read implements fs.HandleReader.
func (n *zooNode) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := n.fs.ops.Read(n.path, req.Size, int(req.Offset))
	if err != nil {
		return errno(err)
	}
	resp.Data = data
	return nil
}

// Write implements fs.HandleWriter.
func (n *zooNode) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	written, err := n.fs.ops.Write(n.path, req.Data, int(req.Offset))
	if err != nil {
		return errno(err)
	}
	resp.Size = written
	return nil
}

// Release implements fs.HandleReleaser.
func (n *zooNode) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return errno(n.fs.ops.Release(n.path))
}

// Flush implements fs.HandleFlusher: FsOps writes through on every Write,
// so there is nothing left to flush.
func (n *zooNode) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return nil
}

var (
	_ fs.FS                 = (*zooFS)(nil)
	_ fs.Node               = (*zooNode)(nil)
	_ fs.NodeStringLookuper = (*zooNode)(nil)
	_ fs.HandleReadDirAller = (*zooNode)(nil)
	_ fs.NodeOpener         = (*zooNode)(nil)
	_ fs.NodeCreater        = (*zooNode)(nil)
	_ fs.NodeMkdirer        = (*zooNode)(nil)
	_ fs.NodeRemover        = (*zooNode)(nil)
	_ fs.NodeRenamer        = (*zooNode)(nil)
	_ fs.NodeSymlinker      = (*zooNode)(nil)
	_ fs.NodeReadlinker     = (*zooNode)(nil)
	_ fs.NodeAccesser       = (*zooNode)(nil)
	_ fs.NodeSetattrer      = (*zooNode)(nil)
	_ fs.HandleReader       = (*zooNode)(nil)
	_ fs.HandleWriter       = (*zooNode)(nil)
	_ fs.HandleReleaser     = (*zooNode)(nil)
	_ fs.HandleFlusher      = (*zooNode)(nil)
)
