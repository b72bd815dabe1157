// Package vfs is the mount-point and file-descriptor dispatch layer:
// it pairs a registered filesystem type with a logical disk at a
// mount path (vfs_mount) and routes Open/Read/Write/Close calls to
// whichever mounted filesystem owns the longest matching path prefix.
// Filesystem semantics beyond this dispatch are explicitly out of
// scope (spec §6's "for completeness, out of specified scope" / the
// Non-goals list); this package only implements the contract named
// there plus enough of a fd table to exercise it.
package vfs

import (
	"strings"
	"sync"

	"kcore/disk"
	"kcore/internal/status"
)

// FileHandle is an open file within a mounted filesystem.
type FileHandle interface {
	Read(buf []byte) (int, status.Err)
	Write(buf []byte) (int, status.Err)
	Close() status.Err
}

// Filesystem is a mounted filesystem instance.
type Filesystem interface {
	Open(path string) (FileHandle, status.Err)
}

// FSType is a registered filesystem driver, instantiated against a
// logical disk at mount time.
type FSType interface {
	Name() string
	Mount(ld *disk.Ldisk) (Filesystem, status.Err)
}

type mountpoint struct {
	path string
	fs   Filesystem
}

// VFS is the process-wide mount table and file-descriptor table.
type VFS struct {
	mu      sync.Mutex
	fstypes map[string]FSType
	mounts  []*mountpoint
	fds     map[int]FileHandle
	nextFD  int
}

// New returns an empty VFS.
func New() *VFS {
	return &VFS{
		fstypes: make(map[string]FSType),
		fds:     make(map[int]FileHandle),
		nextFD:  3, // reserve 0,1,2 the way a Unix-derived fd table does
	}
}

// RegisterFSType makes a filesystem driver available to Mount by name.
func (v *VFS) RegisterFSType(ft FSType) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fstypes[ft.Name()] = ft
}

// Mount pairs a registered filesystem type with a logical disk at
// mountpath.
func (v *VFS) Mount(fstypeName string, ld *disk.Ldisk, mountpath string) status.Err {
	v.mu.Lock()
	defer v.mu.Unlock()

	ft, ok := v.fstypes[fstypeName]
	if !ok {
		return status.NOENT
	}
	fs, err := ft.Mount(ld)
	if err != status.OK {
		return err
	}
	v.mounts = append(v.mounts, &mountpoint{path: mountpath, fs: fs})
	// Longest path first so resolveMountLocked's first prefix match is
	// also the most specific one.
	for i := len(v.mounts) - 1; i > 0 && len(v.mounts[i].path) > len(v.mounts[i-1].path); i-- {
		v.mounts[i], v.mounts[i-1] = v.mounts[i-1], v.mounts[i]
	}
	return status.OK
}

func (v *VFS) resolveMountLocked(path string) (*mountpoint, string) {
	for _, mp := range v.mounts {
		if strings.HasPrefix(path, mp.path) {
			rel := strings.TrimPrefix(path, mp.path)
			if rel == "" {
				rel = "/"
			}
			return mp, rel
		}
	}
	return nil, ""
}

// Open resolves path against the mount table and returns a new file
// descriptor for it.
func (v *VFS) Open(path string) (int, status.Err) {
	v.mu.Lock()
	mp, rel := v.resolveMountLocked(path)
	v.mu.Unlock()
	if mp == nil {
		return -1, status.NOENT
	}
	fh, err := mp.fs.Open(rel)
	if err != status.OK {
		return -1, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	fd := v.nextFD
	v.nextFD++
	v.fds[fd] = fh
	return fd, status.OK
}

func (v *VFS) lookupFD(fd int) (FileHandle, status.Err) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fh, ok := v.fds[fd]
	if !ok {
		return nil, status.BADF
	}
	return fh, status.OK
}

// Read reads from an open file descriptor.
func (v *VFS) Read(fd int, buf []byte) (int, status.Err) {
	fh, err := v.lookupFD(fd)
	if err != status.OK {
		return 0, err
	}
	return fh.Read(buf)
}

// Write writes to an open file descriptor.
func (v *VFS) Write(fd int, buf []byte) (int, status.Err) {
	fh, err := v.lookupFD(fd)
	if err != status.OK {
		return 0, err
	}
	return fh.Write(buf)
}

// Close closes a file descriptor and removes it from the fd table.
func (v *VFS) Close(fd int) status.Err {
	fh, err := v.lookupFD(fd)
	if err != status.OK {
		return err
	}
	v.mu.Lock()
	delete(v.fds, fd)
	v.mu.Unlock()
	return fh.Close()
}
