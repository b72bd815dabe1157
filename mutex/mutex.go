// Package mutex is the kernel's sole synchronization primitive: a
// spinning, debug-instrumented lock. Ported from yjkos's
// original_source/include/kernel/sync/mutex.h contract (atomic CAS
// try_lock, busy-wait lock, release-store unlock) with the last-
// acquirer bookkeeping biscuit's own locking code
// (biscuit/src/kernel) logs on contention.
package mutex

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"kcore/sched"
)

// Mutex is a spinning mutual-exclusion lock whose locked field
// transitions false -> true -> false only: a double-unlock or a
// double-lock-by-the-same-owner is a bug the debug source fields help
// diagnose.
type Mutex struct {
	locked atomic.Bool

	// lastLockFile/lastLockLine record where the current (or most
	// recent) holder acquired the lock, for diagnosing the invariant
	// violation above.
	lastLockFile string
	lastLockLine int
}

// TryLock attempts a single compare-and-swap false->true with acquire
// ordering and reports whether it succeeded.
func (m *Mutex) TryLock() bool { return m.tryLock() }

// tryLock is TryLock's body; on success it records the caller of
// TryLock, Lock or LockYielding as the lock source.
func (m *Mutex) tryLock() bool {
	ok := m.locked.CompareAndSwap(false, true)
	if ok {
		_, file, line, _ := runtime.Caller(2)
		m.lastLockFile, m.lastLockLine = file, line
	}
	return ok
}

// Lock busy-waits on TryLock until it succeeds. Each failed attempt
// calls runtime.Gosched so the host thread is not monopolised;
// LockYielding yields through the kernel scheduler instead. Either
// way lock eventually succeeds provided some holder always eventually
// releases.
func (m *Mutex) Lock() {
	for !m.tryLock() {
		runtime.Gosched()
	}
}

// LockYielding is Lock, but cooperatively yields through s on
// contention instead of the host runtime scheduler — the behaviour
// spec §4.7 calls "a later revision must yield via the scheduler".
func (m *Mutex) LockYielding(s *sched.Scheduler) {
	for !m.tryLock() {
		s.Schedule(true)
	}
}

// Unlock atomically stores false with release ordering. Unlocking an
// already-unlocked mutex panics, naming the last lock source, rather
// than being silently ignored, since it signals the false->true->false
// invariant was violated somewhere.
func (m *Mutex) Unlock() {
	if !m.locked.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("mutex: unlock of unlocked mutex last locked at %s:%d", m.lastLockFile, m.lastLockLine))
	}
}

// LockedAt returns the source location of the most recent successful
// Lock/TryLock, for diagnostics.
func (m *Mutex) LockedAt() (file string, line int) {
	return m.lastLockFile, m.lastLockLine
}
