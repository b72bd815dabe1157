package prof

import (
	"testing"
	"time"

	"kcore/internal/status"
)

func TestStartStopCapturesProfile(t *testing.T) {
	d := New()
	if err := d.Start(); err != status.OK {
		t.Fatalf("Start() = %v", err)
	}

	deadline := time.Now().Add(15 * time.Millisecond)
	for time.Now().Before(deadline) {
	}

	p, err := d.Stop()
	if err != status.OK {
		t.Fatalf("Stop() = %v", err)
	}
	if p == nil {
		t.Fatal("Stop() returned nil profile")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	d := New()
	if err := d.Start(); err != status.OK {
		t.Fatalf("Start() = %v", err)
	}
	defer d.Stop()

	if err := d.Start(); err != status.INVAL {
		t.Fatalf("second Start() = %v, want INVAL", err)
	}
}

func TestStopWithoutStartRejected(t *testing.T) {
	d := New()
	if _, err := d.Stop(); err != status.INVAL {
		t.Fatalf("Stop() without Start = %v, want INVAL", err)
	}
}
