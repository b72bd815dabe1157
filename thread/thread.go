// Package thread is the kernel's thread core: creation, the
// saved-context handoff the scheduler drives, and the stack-priming
// contract a real architecture port must honour.
//
// The original (yjkos's original_source/include/kernel/proc/thread.h
// and arch/x86_64/thread.S) primes a freshly allocated stack so the
// first switch into a thread returns straight into its entry point,
// then does the actual context switch with a few lines of inline
// assembly that push/pop the callee-saved registers and swap stack
// pointers. Go has no portable inline assembly and no access to a
// modified runtime that would let a goroutine's stack be parked and
// resumed by hand the way biscuit's runtime fork does, so this port
// represents "the currently running thread" as a goroutine blocked on
// a channel receive and models arch_thread_switch(from, to) as a
// baton-pass: send on to's resume channel, then (unless from is the
// bootstrap context) block on from's own resume channel until some
// later switch hands control back. At most one thread's goroutine is
// ever unblocked at a time, preserving the single-CPU, one-runnable-
// thread-at-once semantics the scheduler assumes.
package thread

import "kcore/internal/klog"

var log = klog.Sub("thread")

// State is a thread's scheduling state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateDead
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// StackLayout documents the primed-stack contract a real architecture
// port must establish before the first switch into a thread, from
// high to low address: two reserved (unused) argument slots, the
// entry address landed into by the return instruction, a zeroed base
// pointer, the initial flags word, and three zeroed callee-saved
// register slots. The goroutine-backed Thread below has no stack to
// prime — the Go runtime already parks goroutines at a safe resumption
// point — but entry and InitialInterruptsEnabled below are exactly the
// two pieces of that layout with runtime meaning in this port.
type StackLayout struct {
	ArgSlots                 [2]uintptr
	EntryAddr                uintptr
	ZeroedBasePointer        uintptr
	InitialFlags             uintptr
	CalleeSavedRegisterSlots [3]uintptr
}

// Thread is one schedulable unit of execution.
type Thread struct {
	Name     string
	Priority int

	// InitialInterruptsEnabled is the primed flags word: whether
	// interrupts should read as enabled the first time this thread
	// runs, mirroring StackLayout.InitialFlags.
	InitialInterruptsEnabled bool

	state  State
	entry  func()
	resume chan struct{}
	done   chan struct{}
}

// New creates a thread that will call entry the first time it is
// switched into. The thread's goroutine is started immediately but
// blocks until the first Switch hands it control — the cooperative
// equivalent of priming its stack and leaving it on the ready list.
func New(name string, priority int, entry func()) *Thread {
	t := &Thread{
		Name:                     name,
		Priority:                 priority,
		InitialInterruptsEnabled: true,
		state:                    StateReady,
		entry:                    entry,
		resume:                   make(chan struct{}),
		done:                     make(chan struct{}),
	}
	go t.run()
	return t
}

// NewBootstrapContext returns a synchronization handle for a caller
// that is not itself a scheduled Thread — the architecture boot code
// before the first scheduler entry. It has a resume channel so Switch
// can hand control back to it, but no backing goroutine and no entry
// function: the caller's own goroutine IS the context, exactly the way
// the real boot code never becomes a Thread_t but still needs
// arch_thread_switch(from, to) to save its stack pointer somewhere.
func NewBootstrapContext(name string) *Thread {
	return &Thread{
		Name:   name,
		state:  StateRunning,
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (t *Thread) run() {
	<-t.resume
	t.state = StateRunning
	log.WithField("thread", t.Name).Debug("entered")
	t.entry()
	t.state = StateDead
	log.WithField("thread", t.Name).Debug("exited")
	close(t.done)
}

// State reports the thread's current scheduling state.
func (t *Thread) State() State { return t.state }

// Done returns a channel closed when the thread's entry function
// returns.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Switch is the cooperative analogue of arch_thread_switch(from, to):
// it hands control to to and, unless from is nil (the one-way switch
// used by the scheduler's very first entry), blocks the calling
// goroutine until a later Switch hands control back to from.
func Switch(from, to *Thread) {
	if to.state != StateDead {
		to.state = StateRunning
	}
	if from == nil {
		to.resume <- struct{}{}
		return
	}
	from.state = StateReady
	to.resume <- struct{}{}
	<-from.resume
}
