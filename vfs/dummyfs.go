package vfs

import (
	"bytes"
	"sync"

	"kcore/disk"
	"kcore/internal/status"
)

// DummyFS is a minimal in-memory filesystem used to exercise mount
// dispatch and the fd table in tests; it holds no on-disk format and
// never touches its backing Ldisk. Real filesystem semantics are out
// of scope (spec §6, §1 Non-goals) — this exists only to give Mount
// and Open/Read/Write/Close something concrete to dispatch to.
type DummyFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

// DummyFSType registers "dummyfs" as a mountable driver.
type DummyFSType struct{}

func (DummyFSType) Name() string { return "dummyfs" }

func (DummyFSType) Mount(ld *disk.Ldisk) (Filesystem, status.Err) {
	return &DummyFS{files: make(map[string][]byte)}, status.OK
}

// Put seeds a file's contents for Open to later serve; used by tests
// and would be used by a real loader reading from ld at mount time.
func (d *DummyFS) Put(path string, contents []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[path] = contents
}

func (d *DummyFS) Open(path string) (FileHandle, status.Err) {
	d.mu.Lock()
	defer d.mu.Unlock()
	contents, ok := d.files[path]
	if !ok {
		return nil, status.NOENT
	}
	return &dummyHandle{r: bytes.NewReader(contents)}, status.OK
}

type dummyHandle struct {
	r *bytes.Reader
}

func (h *dummyHandle) Read(buf []byte) (int, status.Err) {
	n, err := h.r.Read(buf)
	if n == 0 && err != nil {
		return 0, status.EOF
	}
	return n, status.OK
}

func (h *dummyHandle) Write(buf []byte) (int, status.Err) {
	return 0, status.NOTSUP
}

func (h *dummyHandle) Close() status.Err { return status.OK }
