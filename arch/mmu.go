// Package arch defines the architecture façade the rest of the kernel
// builds on: the MMU contract, interrupt control, and the handful of
// address-space constants that differ per target. Concrete backends
// live in arch/simmu; production yjkos ports this to x86 page tables,
// this module ports it to a simulated flat address space so the same
// vm and pmm code runs on the host CPU under test.
package arch

import "kcore/internal/status"

// PhysAddr is a physical page-frame address. It is always a multiple of
// PageSize.
type PhysAddr uintptr

// PageSize is the hardware page size this module targets.
const PageSize = 4096

// Address-space layout constants, mirrored from the original's
// mmu_map.h. simmu uses ScratchMapBase as the base of its
// mmu_scratch_map slots.
const (
	KernelImageAddrStart uintptr = 0xffffffff80000000
	KernelImageAddrEnd   uintptr = 0xffffffff90000000
	KernelVMStart        uintptr = 0xffff800000000000
	KernelVMEnd          uintptr = 0xffff900000000000
	ScratchMapBase       uintptr = 0xffff700000000000
)

// Flags controls the protection and caching attributes of a mapping.
type Flags uint

const (
	FlagWrite Flags = 1 << iota
	FlagExec
	FlagUser
	FlagNoCache
	FlagGlobal
)

// MMU is the façade the vm package programs against. A concrete
// implementation owns the actual page tables (or, for simmu, the
// simulated stand-in for them) and must be safe for use by one
// address space at a time; the vm package serializes access per
// AddressSpace with its own lock.
type MMU interface {
	// Map establishes a mapping from virt for pages contiguous pages to
	// the contiguous physical run starting at phys.
	Map(virt uintptr, phys PhysAddr, pages int, flags Flags) status.Err

	// Remap changes the flags of an existing mapping without touching
	// the physical backing.
	Remap(virt uintptr, pages int, flags Flags) status.Err

	// Unmap tears down pages contiguous pages starting at virt. It is
	// not an error to unmap a hole; unmapped pages are skipped.
	Unmap(virt uintptr, pages int) status.Err

	// ScratchMap temporarily maps a single physical frame at a
	// reserved scratch address and returns it, for short-lived
	// physical-memory access (e.g. zeroing a fresh page before it is
	// mapped into user space).
	ScratchMap(phys PhysAddr, nocache bool) (uintptr, status.Err)

	// ScratchUnmap releases a mapping made by ScratchMap.
	ScratchUnmap(scratch uintptr) status.Err

	// VirtToPhys resolves a mapped virtual address to its physical
	// frame, returning ok=false if virt is unmapped.
	VirtToPhys(virt uintptr) (phys PhysAddr, ok bool)

	// Emulate services a page fault at virt for an access described by
	// flags (FlagWrite set if the fault was a write, FlagUser if it
	// came from user mode). Implementations that cannot transparently
	// emulate the faulting instruction return status.NOTSUP.
	Emulate(virt uintptr, flags Flags) status.Err

	// FlushTLBFor invalidates cached translations for a single page.
	FlushTLBFor(virt uintptr)

	// FlushTLB invalidates all cached translations.
	FlushTLB()
}
