package simmu

import (
	"testing"

	"kcore/arch"
	"kcore/internal/status"
)

func newTestMMU(t *testing.T, pages int) (*Simmu, func()) {
	t.Helper()
	backing, err := NewBackingStore(pages * arch.PageSize)
	if err != nil {
		t.Fatalf("NewBackingStore: %v", err)
	}
	return New(backing), func() { CloseBackingStore(backing) }
}

func TestMapUnmapVirtToPhys(t *testing.T) {
	m, cleanup := newTestMMU(t, 4)
	defer cleanup()

	const virt = arch.KernelVMStart
	if err := m.Map(virt, 0, 2, arch.FlagWrite); err != status.OK {
		t.Fatalf("Map() = %v", err)
	}
	phys, ok := m.VirtToPhys(virt + 10)
	if !ok || phys != 10 {
		t.Fatalf("VirtToPhys() = %v,%v want 10,true", phys, ok)
	}
	if err := m.Unmap(virt, 2); err != status.OK {
		t.Fatalf("Unmap() = %v", err)
	}
	if _, ok := m.VirtToPhys(virt); ok {
		t.Fatal("VirtToPhys() should fail after unmap")
	}
}

func TestMapOverlapRejected(t *testing.T) {
	m, cleanup := newTestMMU(t, 4)
	defer cleanup()

	const virt = arch.KernelVMStart
	if err := m.Map(virt, 0, 2, arch.FlagWrite); err != status.OK {
		t.Fatalf("Map() = %v", err)
	}
	if err := m.Map(virt+arch.PageSize, arch.PhysAddr(arch.PageSize), 1, arch.FlagWrite); err != status.INVAL {
		t.Fatalf("overlapping Map() = %v, want INVAL", err)
	}
}

func TestRemapMissingFails(t *testing.T) {
	m, cleanup := newTestMMU(t, 4)
	defer cleanup()

	if err := m.Remap(arch.KernelVMStart, 1, arch.FlagExec); err != status.FAULT {
		t.Fatalf("Remap() on unmapped page = %v, want FAULT", err)
	}
}

func TestScratchMapRoundTrip(t *testing.T) {
	m, cleanup := newTestMMU(t, 4)
	defer cleanup()

	copy(m.Bytes(0, 4), []byte{1, 2, 3, 4})
	addr, err := m.ScratchMap(0, false)
	if err != status.OK {
		t.Fatalf("ScratchMap() = %v", err)
	}
	phys, ok := m.VirtToPhys(addr)
	if !ok || phys != 0 {
		t.Fatalf("VirtToPhys(scratch) = %v,%v want 0,true", phys, ok)
	}
	if err := m.ScratchUnmap(addr); err != status.OK {
		t.Fatalf("ScratchUnmap() = %v", err)
	}
	if _, ok := m.VirtToPhys(addr); ok {
		t.Fatal("VirtToPhys() should fail after ScratchUnmap")
	}
}
