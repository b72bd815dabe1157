// Package vm is the virtual memory manager: it layers address spaces,
// lazily- and eagerly-backed objects, and page-fault resolution on top
// of the arch.MMU façade and pmm's physical allocator. Free virtual
// regions are grouped in a size-keyed BST (internal/avltree) for
// best-fit allocation with split/coalesce, mirroring the vmregion_t /
// Vmm_t design in yjkos's original_source/include/kernel/mem/vmm.h;
// the object bookkeeping follows the shape of biscuit's vm.Vmregion_t
// (biscuit/src/vm/vm.go) adapted from per-process page tables to this
// module's explicit AddressSpace type.
package vm

import (
	"sync"

	"kcore/arch"
	"kcore/internal/avltree"
	"kcore/internal/bitmap"
	"kcore/internal/klog"
	"kcore/internal/list"
	"kcore/internal/status"
	"kcore/pmm"
)

var log = klog.Sub("vm")

// NoMap is the physical_base sentinel marking an object as lazily
// backed: frames are minted from pmm one page at a time as faults
// occur, never up front.
const NoMap arch.PhysAddr = ^arch.PhysAddr(0)

// VMObject is a contiguous virtual range belonging to one address
// space, either directly backed by a caller-specified physical range
// (owned=false: a PCI BAR, a framebuffer, anything the VMM must not
// free back to pmm) or lazily backed by page frames pmm mints on
// demand (owned=true).
type VMObject struct {
	Base  uintptr
	Pages int
	Flags arch.Flags

	physBase  arch.PhysAddr
	owned     bool
	committed *bitmap.Bitmap
	frames    []arch.PhysAddr
}

func pagesFor(sizeBytes int) int {
	return (sizeBytes + int(arch.PageSize) - 1) / int(arch.PageSize)
}

type freeRegion struct {
	start uintptr
	pages int

	groupNode *avltree.Node[*sizeGroup]
	listNode  *list.Node[*freeRegion]
}

type sizeGroup struct {
	pages   int
	regions *list.List[*freeRegion]
}

// AddressSpace is a virtual address range governed by one MMU context:
// a size-keyed BST of free regions for best-fit allocation and a flat
// list of live objects for fault resolution and neighbour lookups.
type AddressSpace struct {
	mu sync.Mutex

	mmu      arch.MMU
	phys     *pmm.Physmem
	start    uintptr
	end      uintptr
	isKernel bool

	freeBySize *avltree.Tree[*sizeGroup]
	objects    *list.List[*VMObject]
}

var (
	registryMu sync.Mutex
	registry   []*AddressSpace
	kernelAS   *AddressSpace
)

// NewAddressSpace creates an address space governing [start, end) and
// registers it so address_space_for can locate it later. isKernel
// gates the "user fault in a kernel address space" rejection rule.
func NewAddressSpace(mmu arch.MMU, phys *pmm.Physmem, start, end uintptr, isKernel bool) *AddressSpace {
	as := &AddressSpace{
		mmu:        mmu,
		phys:       phys,
		start:      start,
		end:        end,
		isKernel:   isKernel,
		freeBySize: avltree.New[*sizeGroup](),
		objects:    list.New[*VMObject](),
	}
	as.addFreeRegionLocked(start, pagesFor(int(end-start)))

	registryMu.Lock()
	registry = append(registry, as)
	if isKernel && kernelAS == nil {
		kernelAS = as
	}
	registryMu.Unlock()
	return as
}

// KernelAddressSpace returns the process-wide kernel address space
// singleton established by the first NewAddressSpace call with
// isKernel set.
func KernelAddressSpace() *AddressSpace {
	registryMu.Lock()
	defer registryMu.Unlock()
	return kernelAS
}

// AddressSpaceFor returns the address space governing addr, or nil if
// addr falls in a kernel region deliberately unmanaged by the VMM
// (e.g. the direct identity-mapped kernel image).
func AddressSpaceFor(addr uintptr) *AddressSpace {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, as := range registry {
		if addr >= as.start && addr < as.end {
			return as
		}
	}
	return nil
}

func (as *AddressSpace) addFreeRegionLocked(start uintptr, pages int) *freeRegion {
	if pages <= 0 {
		return nil
	}
	node := as.freeBySize.Find(int64(pages))
	if node == nil {
		node = as.freeBySize.Insert(int64(pages), &sizeGroup{pages: pages, regions: list.New[*freeRegion]()})
	}
	fr := &freeRegion{start: start, pages: pages, groupNode: node}
	fr.listNode = node.Value.regions.PushBack(fr)
	return fr
}

func (as *AddressSpace) removeFreeRegionLocked(fr *freeRegion) {
	grp := fr.groupNode.Value
	grp.regions.Remove(fr.listNode)
	if grp.regions.Len() == 0 {
		as.freeBySize.Remove(fr.groupNode)
	}
}

// bestFitLocked removes and returns the smallest free region whose
// size is >= wantPages, or nil.
func (as *AddressSpace) bestFitLocked(wantPages int) *freeRegion {
	node := as.freeBySize.FindGE(int64(wantPages))
	if node == nil {
		return nil
	}
	fr, _ := node.Value.regions.RemoveFront()
	if node.Value.regions.Len() == 0 {
		as.freeBySize.Remove(node)
	}
	return fr
}

// findRegionContainingLocked scans every free-region group for the one
// region (if any) spanning [addr, addr+pages*PageSize). Spec §4.4
// explicitly permits this style of list scan for neighbour lookups.
func (as *AddressSpace) findRegionContainingLocked(addr uintptr, pages int) *freeRegion {
	var found *freeRegion
	end := addr + uintptr(pages)*arch.PageSize
	as.freeBySize.InOrder(func(n *avltree.Node[*sizeGroup]) {
		if found != nil {
			return
		}
		n.Value.regions.Each(func(ln *list.Node[*freeRegion]) {
			if found != nil {
				return
			}
			r := ln.Value
			rEnd := r.start + uintptr(r.pages)*arch.PageSize
			if r.start <= addr && end <= rEnd {
				found = r
			}
		})
	})
	return found
}

// findAdjacentLocked returns free regions immediately to the left
// (ending exactly at start) and right (starting exactly at
// start+pages*PageSize) of a range being freed, for coalescing.
func (as *AddressSpace) findAdjacentLocked(start uintptr, pages int) (left, right *freeRegion) {
	end := start + uintptr(pages)*arch.PageSize
	as.freeBySize.InOrder(func(n *avltree.Node[*sizeGroup]) {
		n.Value.regions.Each(func(ln *list.Node[*freeRegion]) {
			r := ln.Value
			rEnd := r.start + uintptr(r.pages)*arch.PageSize
			if rEnd == start {
				left = r
			}
			if r.start == end {
				right = r
			}
		})
	})
	return left, right
}

func (as *AddressSpace) findObjectLocked(addr uintptr) *VMObject {
	var found *VMObject
	as.objects.Each(func(n *list.Node[*VMObject]) {
		if found != nil {
			return
		}
		o := n.Value
		if addr >= o.Base && addr < o.Base+uintptr(o.Pages)*arch.PageSize {
			found = o
		}
	})
	return found
}

func (as *AddressSpace) removeObjectLocked(obj *VMObject) {
	as.objects.Each(func(n *list.Node[*VMObject]) {
		if n.Value == obj {
			as.objects.Remove(n)
		}
	})
}

// Alloc allocates sizeBytes, rounded up to page granularity, anywhere
// in the address space: best-fit against the free-region BST, split,
// and a new lazily-backed (NOMAP) object. No PMM frames are consumed;
// a page fault in this region will materialise frames lazily.
func (as *AddressSpace) Alloc(sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	as.mu.Lock()
	defer as.mu.Unlock()

	pages := pagesFor(sizeBytes)
	if pages < 1 {
		return nil, status.INVAL
	}
	fr := as.bestFitLocked(pages)
	if fr == nil {
		return nil, status.NOMEM
	}
	if fr.pages > pages {
		as.addFreeRegionLocked(fr.start+uintptr(pages)*arch.PageSize, fr.pages-pages)
	}
	obj := &VMObject{
		Base:      fr.start,
		Pages:     pages,
		Flags:     flags,
		physBase:  NoMap,
		owned:     true,
		committed: bitmap.New(pages),
		frames:    make([]arch.PhysAddr, pages),
	}
	as.objects.PushBack(obj)
	return obj, status.OK
}

// AllocAt is Alloc with a caller-dictated virtual base. It fails with
// INVAL if the requested region overlaps an existing object or
// escapes the address-space window.
func (as *AddressSpace) AllocAt(virtBase uintptr, sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	as.mu.Lock()
	defer as.mu.Unlock()

	pages := pagesFor(sizeBytes)
	if pages < 1 || virtBase < as.start || virtBase+uintptr(pages)*arch.PageSize > as.end {
		return nil, status.INVAL
	}
	if as.findObjectLocked(virtBase) != nil {
		return nil, status.INVAL
	}

	fr := as.findRegionContainingLocked(virtBase, pages)
	if fr == nil {
		return nil, status.INVAL
	}
	as.removeFreeRegionLocked(fr)
	if before := virtBase - fr.start; before > 0 {
		as.addFreeRegionLocked(fr.start, int(before/arch.PageSize))
	}
	frEnd := fr.start + uintptr(fr.pages)*arch.PageSize
	reqEnd := virtBase + uintptr(pages)*arch.PageSize
	if after := frEnd - reqEnd; after > 0 {
		as.addFreeRegionLocked(reqEnd, int(after/arch.PageSize))
	}

	obj := &VMObject{
		Base:      virtBase,
		Pages:     pages,
		Flags:     flags,
		physBase:  NoMap,
		owned:     true,
		committed: bitmap.New(pages),
		frames:    make([]arch.PhysAddr, pages),
	}
	as.objects.PushBack(obj)
	return obj, status.OK
}

// allocObjectLocked is the shared body of AllocObject/Map: pick (or
// verify) a virtual range, install the mapping immediately, and mark
// the object fully committed, never touching pmm.
func (as *AddressSpace) allocObjectLocked(fr *freeRegion, pages int, physBase arch.PhysAddr, flags arch.Flags) (*VMObject, status.Err) {
	if err := as.mmu.Map(fr.start, physBase, pages, flags); err != status.OK {
		as.addFreeRegionLocked(fr.start, fr.pages)
		return nil, err
	}
	committed := bitmap.New(pages)
	committed.Set(0, pages)
	obj := &VMObject{
		Base:      fr.start,
		Pages:     pages,
		Flags:     flags,
		physBase:  physBase,
		owned:     false,
		committed: committed,
	}
	as.objects.PushBack(obj)
	return obj, status.OK
}

// AllocObject creates an object backed by caller-supplied physical
// memory (a PCI BAR, the framebuffer) anywhere in the address space,
// installing the mapping immediately via the MMU façade.
func (as *AddressSpace) AllocObject(physBase arch.PhysAddr, sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	as.mu.Lock()
	defer as.mu.Unlock()

	pages := pagesFor(sizeBytes)
	fr := as.bestFitLocked(pages)
	if fr == nil {
		return nil, status.NOMEM
	}
	if fr.pages > pages {
		as.addFreeRegionLocked(fr.start+uintptr(pages)*arch.PageSize, fr.pages-pages)
		fr.pages = pages
	}
	return as.allocObjectLocked(fr, pages, physBase, flags)
}

// AllocObjectAt is AllocObject with a caller-dictated virtual base.
func (as *AddressSpace) AllocObjectAt(virtBase uintptr, physBase arch.PhysAddr, sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	as.mu.Lock()
	defer as.mu.Unlock()

	pages := pagesFor(sizeBytes)
	if pages < 1 || virtBase < as.start || virtBase+uintptr(pages)*arch.PageSize > as.end {
		return nil, status.INVAL
	}
	if as.findObjectLocked(virtBase) != nil {
		return nil, status.INVAL
	}
	fr := as.findRegionContainingLocked(virtBase, pages)
	if fr == nil {
		return nil, status.INVAL
	}
	as.removeFreeRegionLocked(fr)
	if before := virtBase - fr.start; before > 0 {
		as.addFreeRegionLocked(fr.start, int(before/arch.PageSize))
	}
	frEnd := fr.start + uintptr(fr.pages)*arch.PageSize
	reqEnd := virtBase + uintptr(pages)*arch.PageSize
	if after := frEnd - reqEnd; after > 0 {
		as.addFreeRegionLocked(reqEnd, int(after/arch.PageSize))
	}
	return as.allocObjectLocked(&freeRegion{start: virtBase, pages: pages}, pages, physBase, flags)
}

// Map and MapAt are convenience aliases for AllocObject/AllocObjectAt,
// used for non-owned memory such as identity-mapped MMIO; the VMM
// makes no semantic distinction between the two call sites.
func (as *AddressSpace) Map(physBase arch.PhysAddr, sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	return as.AllocObject(physBase, sizeBytes, flags)
}

func (as *AddressSpace) MapAt(virtBase uintptr, physBase arch.PhysAddr, sizeBytes int, flags arch.Flags) (*VMObject, status.Err) {
	return as.AllocObjectAt(virtBase, physBase, sizeBytes, flags)
}

// Ezmap is a shortcut that maps phys_base..+size into the kernel
// address space with read/write permission and returns the resulting
// kernel-virtual address.
func Ezmap(physBase arch.PhysAddr, sizeBytes int) (uintptr, status.Err) {
	obj, err := KernelAddressSpace().Map(physBase, sizeBytes, arch.FlagWrite)
	if err != status.OK {
		return 0, err
	}
	return obj.Base, status.OK
}

// Free unmaps obj's pages, releases any VMM-owned frames back to pmm,
// and coalesces the resulting free range with its neighbours.
func (as *AddressSpace) Free(obj *VMObject) status.Err {
	as.mu.Lock()
	defer as.mu.Unlock()

	if err := as.mmu.Unmap(obj.Base, obj.Pages); err != status.OK {
		return err
	}
	if obj.owned {
		for i := 0; i < obj.Pages; i++ {
			if !obj.committed.IsSet(i) {
				continue
			}
			n := 1
			if err := as.phys.Free(obj.frames[i], n); err != status.OK {
				log.WithField("frame", obj.frames[i]).Error("vm: freeing frame failed")
			}
		}
	}
	as.removeObjectLocked(obj)

	start, pages := obj.Base, obj.Pages
	left, right := as.findAdjacentLocked(start, pages)
	if left != nil {
		as.removeFreeRegionLocked(left)
		start = left.start
		pages += left.pages
	}
	if right != nil {
		as.removeFreeRegionLocked(right)
		pages += right.pages
	}
	as.addFreeRegionLocked(start, pages)
	return status.OK
}

// OnPageFault is the VMM's half of CPU page-fault resolution, called
// with the address space governing addr (nil, for an address no
// address space manages, panics). It locates the enclosing object, rejects
// disallowed accesses, and for a NOMAP object materialises exactly one
// frame for the faulting page — never its siblings.
func OnPageFault(as *AddressSpace, addr uintptr, wasPresent, wasWrite, wasUser bool) status.Err {
	if as == nil {
		klog.Fatalf("page fault at %#x in unmanaged kernel region", addr)
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	obj := as.findObjectLocked(addr)
	if obj == nil {
		log.WithField("addr", addr).Warn("page fault: no object covers address")
		return status.FAULT
	}
	if wasWrite && obj.Flags&arch.FlagWrite == 0 {
		return status.FAULT
	}
	if wasUser && as.isKernel {
		return status.FAULT
	}
	if obj.physBase != NoMap {
		// Already fully committed; a fault here is a permission issue
		// already rejected above, or a spurious re-fault.
		return status.OK
	}

	pageIdx := int((addr - obj.Base) / arch.PageSize)
	if obj.committed.IsSet(pageIdx) {
		return status.OK
	}

	n := 1
	phys, ok := as.phys.Alloc(&n)
	if !ok || n != 1 {
		return status.NOMEM
	}
	virtPage := obj.Base + uintptr(pageIdx)*arch.PageSize
	if err := as.mmu.Map(virtPage, phys, 1, obj.Flags); err != status.OK {
		as.phys.Free(phys, 1)
		return err
	}
	obj.committed.SetBit(pageIdx)
	obj.frames[pageIdx] = phys
	as.mmu.FlushTLBFor(virtPage)
	return status.OK
}
