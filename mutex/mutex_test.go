package mutex

import (
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestTryLockExclusion(t *testing.T) {
	var m Mutex
	if !m.TryLock() {
		t.Fatal("first TryLock should succeed")
	}
	if m.TryLock() {
		t.Fatal("second TryLock while held should fail")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock after Unlock should succeed")
	}
}

func TestUnlockOfUnlockedPanics(t *testing.T) {
	var m Mutex
	defer func() {
		if recover() == nil {
			t.Fatal("Unlock of an unlocked mutex should panic")
		}
	}()
	m.Unlock()
}

func TestLockBlocksUntilRelease(t *testing.T) {
	var m Mutex
	m.Lock()

	done := make(chan struct{})
	go func() {
		m.Lock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Lock() must not succeed while held")
	default:
	}

	m.Unlock()
	<-done
}

func TestConcurrentLockUnlockSerializes(t *testing.T) {
	var m Mutex
	counter := 0
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			m.Lock()
			counter++
			m.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("g.Wait() = %v", err)
	}
	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}
