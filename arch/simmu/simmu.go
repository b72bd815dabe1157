// Package simmu is a simulated MMU for running kcore's vm and pmm logic
// on the host CPU instead of real x86 page tables: page-table entries
// are kept in an ordinary Go map rather than hardware structures, and
// "physical memory" is a flat backing store allocated with
// golang.org/x/sys/unix.Mmap on Linux (arch/simmu/backing_linux.go) so
// the pages genuinely live outside the Go heap and survive the garbage
// collector the way real page frames would; backing_other.go falls
// back to a plain slice on non-Linux hosts.
package simmu

import (
	"sync"
	"sync/atomic"

	"kcore/arch"
	"kcore/internal/status"
)

type pte struct {
	phys  arch.PhysAddr
	flags arch.Flags
}

// Simmu implements arch.MMU over a single flat backing store.
type Simmu struct {
	backing []byte

	mu    sync.Mutex
	table map[uintptr]pte

	scratchSeq atomic.Uint64
	scratchMu  sync.Mutex
	scratch    map[uintptr]arch.PhysAddr
}

// New wraps an already-allocated physical backing store (see
// NewBackingStore) in a Simmu. len(backing) must be a multiple of
// arch.PageSize.
func New(backing []byte) *Simmu {
	return &Simmu{
		backing: backing,
		table:   make(map[uintptr]pte),
		scratch: make(map[uintptr]arch.PhysAddr),
	}
}

// PhysSize returns the size of the backing store in bytes, i.e. the
// total amount of simulated physical memory.
func (s *Simmu) PhysSize() int { return len(s.backing) }

// Bytes returns a slice of the backing store covering n bytes starting
// at phys, giving direct access to a simulated frame's contents (the
// tests use it to inspect frames). This is simmu-specific plumbing, not part of arch.MMU: a real
// page-table backend has no equivalent, because physical memory isn't
// otherwise addressable from kernel code running under Go.
func (s *Simmu) Bytes(phys arch.PhysAddr, n int) []byte {
	return s.backing[int(phys) : int(phys)+n]
}

func pageAligned(addr uintptr) bool { return addr%arch.PageSize == 0 }

func (s *Simmu) Map(virt uintptr, phys arch.PhysAddr, pages int, flags arch.Flags) status.Err {
	if !pageAligned(virt) || !pageAligned(uintptr(phys)) {
		return status.INVAL
	}
	if int(phys)+pages*arch.PageSize > len(s.backing) {
		return status.FAULT
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < pages; i++ {
		v := virt + uintptr(i)*arch.PageSize
		if _, exists := s.table[v]; exists {
			return status.INVAL
		}
	}
	for i := 0; i < pages; i++ {
		v := virt + uintptr(i)*arch.PageSize
		p := phys + arch.PhysAddr(i*arch.PageSize)
		s.table[v] = pte{phys: p, flags: flags}
	}
	return status.OK
}

func (s *Simmu) Remap(virt uintptr, pages int, flags arch.Flags) status.Err {
	if !pageAligned(virt) {
		return status.INVAL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < pages; i++ {
		v := virt + uintptr(i)*arch.PageSize
		e, ok := s.table[v]
		if !ok {
			return status.FAULT
		}
		e.flags = flags
		s.table[v] = e
	}
	return status.OK
}

func (s *Simmu) Unmap(virt uintptr, pages int) status.Err {
	if !pageAligned(virt) {
		return status.INVAL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < pages; i++ {
		delete(s.table, virt+uintptr(i)*arch.PageSize)
	}
	return status.OK
}

func (s *Simmu) ScratchMap(phys arch.PhysAddr, nocache bool) (uintptr, status.Err) {
	if !pageAligned(uintptr(phys)) {
		return 0, status.INVAL
	}
	slot := s.scratchSeq.Add(1)
	addr := arch.ScratchMapBase + uintptr(slot)*arch.PageSize
	s.scratchMu.Lock()
	s.scratch[addr] = phys
	s.scratchMu.Unlock()
	return addr, status.OK
}

func (s *Simmu) ScratchUnmap(scratchAddr uintptr) status.Err {
	s.scratchMu.Lock()
	defer s.scratchMu.Unlock()
	if _, ok := s.scratch[scratchAddr]; !ok {
		return status.INVAL
	}
	delete(s.scratch, scratchAddr)
	return status.OK
}

func (s *Simmu) VirtToPhys(virt uintptr) (arch.PhysAddr, bool) {
	page := virt &^ (arch.PageSize - 1)
	off := virt - page

	s.scratchMu.Lock()
	if p, ok := s.scratch[page]; ok {
		s.scratchMu.Unlock()
		return p + arch.PhysAddr(off), true
	}
	s.scratchMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.table[page]
	if !ok {
		return 0, false
	}
	return e.phys + arch.PhysAddr(off), true
}

// Emulate always reports status.NOTSUP: simmu never transparently
// services a fault at the MMU layer, so every NOMAP vm object is
// backed by the vm package's own on-demand materialization rather than
// hardware emulation tricks.
func (s *Simmu) Emulate(virt uintptr, flags arch.Flags) status.Err {
	return status.NOTSUP
}

func (s *Simmu) FlushTLBFor(virt uintptr) {}
func (s *Simmu) FlushTLB()                {}

var _ arch.MMU = (*Simmu)(nil)
