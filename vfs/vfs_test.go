package vfs

import (
	"testing"

	"kcore/internal/status"
)

func TestMountAndOpenDispatch(t *testing.T) {
	v := New()
	v.RegisterFSType(DummyFSType{})
	if err := v.Mount("dummyfs", nil, "/mnt"); err != status.OK {
		t.Fatalf("Mount() = %v", err)
	}

	// Reach into the mounted filesystem to seed a file, the way a real
	// loader would read it from the backing ldisk at mount time.
	dfs := v.mounts[0].fs.(*DummyFS)
	dfs.Put("/hello.txt", []byte("hi"))

	fd, err := v.Open("/mnt/hello.txt")
	if err != status.OK {
		t.Fatalf("Open() = %v", err)
	}
	buf := make([]byte, 8)
	n, err := v.Read(fd, buf)
	if err != status.OK || string(buf[:n]) != "hi" {
		t.Fatalf("Read() = %q,%v want hi,OK", buf[:n], err)
	}
	if err := v.Close(fd); err != status.OK {
		t.Fatalf("Close() = %v", err)
	}
}

func TestOpenUnmountedPathFails(t *testing.T) {
	v := New()
	if _, err := v.Open("/nowhere/file"); err != status.NOENT {
		t.Fatalf("Open(unmounted) = %v, want NOENT", err)
	}
}

func TestReadBadFDFails(t *testing.T) {
	v := New()
	if _, err := v.Read(999, make([]byte, 1)); err != status.BADF {
		t.Fatalf("Read(bad fd) = %v, want BADF", err)
	}
}

func TestLongestPrefixMountWins(t *testing.T) {
	v := New()
	v.RegisterFSType(DummyFSType{})
	v.Mount("dummyfs", nil, "/")
	v.Mount("dummyfs", nil, "/mnt")

	root := v.mounts[1].fs.(*DummyFS) // shorter mount, sorted last
	nested := v.mounts[0].fs.(*DummyFS)
	root.Put("/mnt/shadowed", []byte("root"))
	nested.Put("/shadowed", []byte("nested"))

	fd, err := v.Open("/mnt/shadowed")
	if err != status.OK {
		t.Fatalf("Open() = %v", err)
	}
	buf := make([]byte, 16)
	n, _ := v.Read(fd, buf)
	if string(buf[:n]) != "nested" {
		t.Fatalf("Open(/mnt/shadowed) served %q, want the more specific /mnt mount's file", buf[:n])
	}
}
