package main

import (
	"syscall"

	"bazil.org/fuse"

	"zoofs.io/errors"
)

// errno maps a *zoofs.io/errors.Error's Kind onto the fuse.Errno the
// kernel expects, the same Kind-to-syscall-number switch upspin's
// cmd/dfuse hand-rolls per call site with mkError/eio/enoent/eperm; here
// it is centralized once since FsOps already carries the Kind.
func errno(err error) error {
	if err == nil {
		return nil
	}
	switch errors.KindOf(err) {
	case errors.Permission:
		return fuse.Errno(syscall.EACCES)
	case errors.Invalid:
		return fuse.Errno(syscall.EINVAL)
	case errors.NotExist:
		return fuse.ENOENT
	case errors.Exist:
		return fuse.Errno(syscall.EEXIST)
	case errors.IsDir:
		return fuse.Errno(syscall.EISDIR)
	case errors.NotDir:
		return fuse.Errno(syscall.ENOTDIR)
	case errors.NotEmpty:
		return fuse.Errno(syscall.ENOTEMPTY)
	case errors.Unsupported:
		return fuse.ENOSYS
	default:
		return fuse.Errno(syscall.EIO)
	}
}
