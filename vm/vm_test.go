package vm

import (
	"testing"

	"kcore/arch"
	"kcore/arch/simmu"
	"kcore/internal/status"
	"kcore/pmm"
)

func newTestEnv(t *testing.T, physPages int) (*simmu.Simmu, *pmm.Physmem, func()) {
	t.Helper()
	backing, err := simmu.NewBackingStore(physPages * arch.PageSize)
	if err != nil {
		t.Fatalf("NewBackingStore: %v", err)
	}
	mmu := simmu.New(backing)
	phys := pmm.New()
	if err := phys.Register(0, physPages); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return mmu, phys, func() { simmu.CloseBackingStore(backing) }
}

// TestScenarioS2 reproduces spec §8 scenario S2: lazy commit on fault,
// one PMM frame consumed per distinct faulting page, none up front.
func TestScenarioS2(t *testing.T) {
	mmu, phys, cleanup := newTestEnv(t, 64)
	defer cleanup()

	const winStart = 0x40000000
	const winEnd = 0x40010000
	as := NewAddressSpace(mmu, phys, winStart, winEnd, true)

	freeBefore := phys.FreePageCount()

	obj, err := as.Alloc(4*arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		t.Fatalf("Alloc() = %v", err)
	}
	if obj.Base != winStart {
		t.Fatalf("Alloc() base = %#x, want %#x", obj.Base, winStart)
	}
	if got := phys.FreePageCount(); got != freeBefore {
		t.Fatalf("Alloc() consumed frames: free=%d, want %d (no frames up front)", got, freeBefore)
	}

	if err := OnPageFault(as, winStart+0x1234, false, true, false); err != status.OK {
		t.Fatalf("OnPageFault(1) = %v", err)
	}
	if got := phys.FreePageCount(); got != freeBefore-1 {
		t.Fatalf("after 1st fault free=%d, want %d", got, freeBefore-1)
	}

	if err := OnPageFault(as, winStart+0x3000, false, true, false); err != status.OK {
		t.Fatalf("OnPageFault(2) = %v", err)
	}
	if got := phys.FreePageCount(); got != freeBefore-2 {
		t.Fatalf("after 2nd fault free=%d, want %d", got, freeBefore-2)
	}

	// Refaulting the same page must not consume a second frame.
	if err := OnPageFault(as, winStart+0x1234, false, true, false); err != status.OK {
		t.Fatalf("re-fault = %v", err)
	}
	if got := phys.FreePageCount(); got != freeBefore-2 {
		t.Fatalf("after re-fault free=%d, want %d (idempotent)", got, freeBefore-2)
	}
}

func TestAllocAtOverlapRejected(t *testing.T) {
	mmu, phys, cleanup := newTestEnv(t, 16)
	defer cleanup()
	as := NewAddressSpace(mmu, phys, 0x1000, 0x10000, true)

	if _, err := as.AllocAt(0x2000, arch.PageSize, arch.FlagWrite); err != status.OK {
		t.Fatalf("AllocAt() = %v", err)
	}
	if _, err := as.AllocAt(0x2000, arch.PageSize, arch.FlagWrite); err != status.INVAL {
		t.Fatalf("overlapping AllocAt() = %v, want INVAL", err)
	}
	if _, err := as.AllocAt(0x20000, arch.PageSize, arch.FlagWrite); err != status.INVAL {
		t.Fatalf("out-of-window AllocAt() = %v, want INVAL", err)
	}
}

func TestFreeCoalescesNeighbours(t *testing.T) {
	mmu, phys, cleanup := newTestEnv(t, 16)
	defer cleanup()
	as := NewAddressSpace(mmu, phys, 0, 8*arch.PageSize, true)

	a, err := as.Alloc(2*arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		t.Fatalf("Alloc(a) = %v", err)
	}
	b, err := as.Alloc(2*arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		t.Fatalf("Alloc(b) = %v", err)
	}
	if err := as.Free(a); err != status.OK {
		t.Fatalf("Free(a) = %v", err)
	}
	if err := as.Free(b); err != status.OK {
		t.Fatalf("Free(b) = %v", err)
	}
	// The whole window should now be one coalesced free region of 8
	// pages: a fresh alloc of the full window must succeed in one shot.
	whole, err := as.Alloc(8*arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		t.Fatalf("Alloc(whole) after coalesce = %v", err)
	}
	if whole.Base != 0 || whole.Pages != 8 {
		t.Fatalf("Alloc(whole) = base %#x pages %d, want 0,8", whole.Base, whole.Pages)
	}
}

func TestMapInstallsImmediately(t *testing.T) {
	mmu, phys, cleanup := newTestEnv(t, 16)
	defer cleanup()
	as := NewAddressSpace(mmu, phys, 0, 8*arch.PageSize, true)

	freeBefore := phys.FreePageCount()
	obj, err := as.Map(0x1000, arch.PageSize, arch.FlagWrite)
	if err != status.OK {
		t.Fatalf("Map() = %v", err)
	}
	if got := phys.FreePageCount(); got != freeBefore {
		t.Fatalf("Map() must not touch pmm: free=%d, want %d", got, freeBefore)
	}
	if phys, ok := mmu.VirtToPhys(obj.Base); !ok || phys != 0x1000 {
		t.Fatalf("VirtToPhys(obj.Base) = %v,%v want 0x1000,true", phys, ok)
	}
}

func TestAddressSpaceForAndUnmanaged(t *testing.T) {
	mmu, phys, cleanup := newTestEnv(t, 16)
	defer cleanup()
	as := NewAddressSpace(mmu, phys, 0x70000000, 0x70001000, true)

	if got := AddressSpaceFor(0x70000500); got != as {
		t.Fatal("AddressSpaceFor() should find the registered address space")
	}
	if got := AddressSpaceFor(0x7fffffff); got != nil {
		t.Fatal("AddressSpaceFor() on unmanaged address should return nil")
	}
}
