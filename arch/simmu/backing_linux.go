//go:build linux

package simmu

import "golang.org/x/sys/unix"

// NewBackingStore allocates nbytes of anonymous mmap'd memory to serve
// as simulated physical RAM. Using an mmap region rather than a Go
// slice keeps the "physical" pages outside the garbage collector's
// purview, closer in spirit to memory pmm hands out by physical
// address in the original.
func NewBackingStore(nbytes int) ([]byte, error) {
	return unix.Mmap(-1, 0, nbytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

// CloseBackingStore releases memory obtained from NewBackingStore.
func CloseBackingStore(b []byte) error {
	return unix.Munmap(b)
}
