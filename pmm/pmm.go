// Package pmm is the physical page-frame allocator: a Physmem manages
// one or more pools of page frames, each pool backed by a free-page
// bitmap, and hands out contiguous runs with largest-run fallback when
// an exact-size request can't be satisfied. Ported from the reference
// counting/bitmap design in biscuit's mem.Physmem_t (biscuit/src/mem/mem.go)
// and yjkos's original_source/include/kernel/mem/pmm.h, simplified from
// biscuit's ref-counted dmap scheme to the simpler single-owner bitmap
// model the spec calls for.
package pmm

import (
	"fmt"

	"kcore/arch"
	"kcore/internal/bitmap"
	"kcore/internal/klog"
	"kcore/internal/status"
)

var log = klog.Sub("pmm")

// pool is one registered physical range.
type pool struct {
	base  arch.PhysAddr
	pages int
	free  *bitmap.Bitmap
}

func (p *pool) contains(base arch.PhysAddr, pages int) bool {
	if base < p.base {
		return false
	}
	startPage := int((base - p.base) / arch.PageSize)
	return startPage >= 0 && startPage+pages <= p.pages
}

// Physmem is a physical page-frame allocator over one or more pools,
// registered in boot order and scanned in that order by Alloc. The
// zero value is ready to use.
type Physmem struct {
	pools []*pool
}

// New returns an empty Physmem. Pools are added with Register.
func New() *Physmem {
	return &Physmem{}
}

// Register adds a new pool spanning pages page frames starting at
// base, allocating its free bitmap from the kernel heap and marking
// every page free. The architecture boot stub calls this once per
// physical range discovered from the firmware memory map before any
// allocator user runs (spec §6's PMM boot contract).
func (m *Physmem) Register(base arch.PhysAddr, pages int) error {
	if pages <= 0 {
		return fmt.Errorf("pmm: register: non-positive page count %d", pages)
	}
	p := &pool{
		base:  base,
		pages: pages,
		free:  bitmap.New(pages),
	}
	p.free.Set(0, pages)
	m.pools = append(m.pools, p)
	log.WithField("base", base).WithField("pages", pages).Debug("pool registered")
	return nil
}

// Alloc searches each pool in registration order for a contiguous run
// of at least *pagecount free pages. On success it marks the run
// allocated, returns its base physical address, and leaves *pagecount
// unchanged. If no pool has a run that large, Alloc returns the
// longest run found across all pools, shrinking *pagecount to that
// run's length — callers that require an exact size must treat a
// shrunk count as failure. ok is false only when no pool has any free
// page at all.
func (m *Physmem) Alloc(pagecount *int) (base arch.PhysAddr, ok bool) {
	prev := arch.InterruptsDisable()
	defer arch.InterruptsRestore(prev)

	want := *pagecount
	if want < 1 {
		want = 1
	}

	var bestPool *pool
	bestStart, bestLen := -1, 0

	for _, p := range m.pools {
		if start := p.free.FindRun(0, want); start != bitmap.NotFound {
			m.commit(p, start, want)
			return p.base + arch.PhysAddr(start*arch.PageSize), true
		}
		if start, length, ok := p.free.LongestRun(); ok && length > bestLen {
			bestPool, bestStart, bestLen = p, start, length
		}
	}

	if bestLen == 0 {
		return 0, false
	}
	m.commit(bestPool, bestStart, bestLen)
	*pagecount = bestLen
	return bestPool.base + arch.PhysAddr(bestStart*arch.PageSize), true
}

func (m *Physmem) commit(p *pool, start, length int) {
	p.free.Clear(start, length)
}

// Free returns pagecount frames starting at base to their pool,
// clearing the corresponding bitmap bits. It is an error if the range
// isn't fully contained in a single registered pool or any page in it
// is already free.
func (m *Physmem) Free(base arch.PhysAddr, pagecount int) status.Err {
	prev := arch.InterruptsDisable()
	defer arch.InterruptsRestore(prev)

	for _, p := range m.pools {
		if !p.contains(base, pagecount) {
			continue
		}
		start := int((base - p.base) / arch.PageSize)
		for i := 0; i < pagecount; i++ {
			if p.free.IsSet(start + i) {
				log.WithField("base", base).Error("double free detected")
				return status.INVAL
			}
		}
		p.free.Set(start, pagecount)
		return status.OK
	}
	return status.FAULT
}

// FreePageCount returns the total number of free pages across all
// pools, for diagnostics and tests.
func (m *Physmem) FreePageCount() int {
	total := 0
	for _, p := range m.pools {
		for i := 0; i < p.pages; i++ {
			if p.free.IsSet(i) {
				total++
			}
		}
	}
	return total
}
