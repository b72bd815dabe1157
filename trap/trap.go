// Package trap is the kernel's trap/interrupt manager: one handler
// chain per trap vector, each handler record protected by a checksum
// recomputed whenever its neighbours change, so that a stray write
// into kernel memory corrupting a handler's function pointer or data
// is caught before the corrupted pointer is ever called. Ported from
// yjkos's original_source/include/kernel/hal/trap.h registration and
// checksum contract; the handler-chain-per-vector shape mirrors
// biscuit's per-IRQ Int_* dispatch tables (biscuit/src/kernel).
package trap

import (
	"unsafe"

	"kcore/arch"
	"kcore/internal/klog"
	"kcore/internal/list"
	"kcore/internal/status"
)

var log = klog.Sub("trap")

// Frame is the architecture trapframe handed to handlers; kcore
// doesn't decode real CPU state, so this simulated trap manager
// carries just the fields vm.OnPageFault and handlers actually need.
type Frame struct {
	Vector   int
	FaultVA  uintptr
	Present  bool
	Write    bool
	FromUser bool
}

// Handler is a registered trap callback; data is opaque caller context
// threaded through unchanged, mirroring the original's void *data.
type Handler func(frame *Frame, data any)

// record is one handler-chain entry. checksum covers every field
// below except itself, recomputed on every mutation of the record or
// its immediate neighbours (a neighbour's prev/next pointers having
// just changed is exactly when a stray write is most likely to have
// clobbered something nearby).
type record struct {
	callback Handler
	data     any
	checksum uint32
}

func computeChecksum(r *record, prevPtr, nextPtr *list.Node[*record]) uint32 {
	// The original sums 32-bit words of the raw struct; without a
	// portable struct layout in Go we instead fold the words that
	// identify the record's contents and linkage: the record's own
	// address, its list neighbours' addresses, the callback's
	// function-value pointer, and the two words (type and value) of the
	// data interface. Changing the callback, the data or the linkage
	// around this record changes these words.
	var sum uint32
	cb := *(*uintptr)(unsafe.Pointer(&r.callback))
	data := *(*[2]uintptr)(unsafe.Pointer(&r.data))
	words := []uintptr{
		addrOf(r),
		addrOf(prevPtr),
		addrOf(nextPtr),
		cb,
		data[0],
		data[1],
	}
	for _, w := range words {
		sum += uint32(w) + uint32(w>>32)
	}
	return ^sum
}

func addrOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Vectors is the architecture-configured upper bound on trap vector
// numbers; the original's table size.
const Vectors = 256

// Manager dispatches trap vectors to their registered handler chains.
type Manager struct {
	chains [Vectors]*list.List[*record]
}

// New returns a Manager with every vector's chain ready to register
// against.
func New() *Manager {
	m := &Manager{}
	for i := range m.chains {
		m.chains[i] = list.New[*record]()
	}
	return m
}

// Register appends a new handler at the tail of trapnum's chain,
// computes its checksum, and recomputes the checksums of its new
// immediate neighbours (their prev/next links just changed).
func (m *Manager) Register(trapnum int, cb Handler, data any) status.Err {
	if trapnum < 0 || trapnum >= Vectors {
		log.WithField("vector", trapnum).Warn("trap: register: vector out of range")
		return status.INVAL
	}
	chain := m.chains[trapnum]
	r := &record{callback: cb, data: data}
	n := chain.PushBack(r)
	m.refreshChecksum(n)
	if prev := n.Prev(); prev != nil {
		m.refreshChecksum(prev)
	}
	if next := n.Next(); next != nil {
		m.refreshChecksum(next)
	}
	return status.OK
}

func (m *Manager) refreshChecksum(n *list.Node[*record]) {
	n.Value.checksum = computeChecksum(n.Value, n.Prev(), n.Next())
}

// Trap walks trapnum's handler chain and invokes every handler whose
// checksum still matches its current linkage, skipping (and logging,
// never calling) any mismatched record. Interrupts MUST already be
// disabled; this is asserted, not merely assumed, because a trap
// delivered to a reentrant handler chain is exactly the corruption
// scenario the checksum guards against.
func (m *Manager) Trap(trapnum int, frame *Frame) {
	arch.AssertInterruptsDisabled()

	if trapnum < 0 || trapnum >= Vectors {
		log.WithField("vector", trapnum).Warn("trap: out-of-range vector, ignored")
		return
	}
	chain := m.chains[trapnum]
	chain.Each(func(n *list.Node[*record]) {
		r := n.Value
		want := computeChecksum(r, n.Prev(), n.Next())
		if want != r.checksum {
			log.WithField("vector", trapnum).Error("trap: handler checksum mismatch, skipped")
			return
		}
		r.callback(frame, r.data)
	})
}
