package arch

import "sync/atomic"

// interruptsEnabled models the CPU's IF flag for the single simulated CPU
// this module runs (spec §5: "single CPU, preemption by timer interrupt").
// Every critical section in pmm, vm, trap, sched, and iodevice captures
// the prior state, disables, operates, and restores on every exit path —
// the idiom spec §5 and §9 both call out explicitly.
var interruptsEnabled atomic.Bool

func init() {
	interruptsEnabled.Store(true)
}

// InterruptsAreEnabled reports the current interrupt state.
func InterruptsAreEnabled() bool { return interruptsEnabled.Load() }

// InterruptsDisable disables interrupts and returns the prior state, for
// use with InterruptsRestore.
func InterruptsDisable() (prev bool) {
	return interruptsEnabled.Swap(false)
}

// InterruptsEnable enables interrupts and returns the prior state.
func InterruptsEnable() (prev bool) {
	return interruptsEnabled.Swap(true)
}

// InterruptsRestore re-enables interrupts if prev, the state captured by
// a matching InterruptsDisable, is true; if prev is false it leaves the
// current state unchanged. This is the guaranteed-on-every-exit-path
// half of the critical section idiom; callers use defer:
//
//	prev := arch.InterruptsDisable()
//	defer arch.InterruptsRestore(prev)
func InterruptsRestore(prev bool) {
	if prev {
		interruptsEnabled.Store(true)
	}
}

// AssertInterruptsDisabled panics if interrupts are currently enabled,
// mirroring ASSERT_INTERRUPTS_DISABLED() in the original trap manager and
// scheduler entry points.
func AssertInterruptsDisabled() {
	if InterruptsAreEnabled() {
		panic("arch: interrupts must be disabled here")
	}
}
