package iodevice

import "testing"

func TestRegisterAssignsUniqueIncreasingIDs(t *testing.T) {
	r := New()
	a := r.Register(TypeConsole, nil, nil)
	b := r.Register(TypeConsole, nil, nil)
	c := r.Register(TypeRawDisk, nil, nil) // different bucket, own id sequence

	if a.ID == 0 || b.ID == 0 || b.ID <= a.ID {
		t.Fatalf("ids not strictly increasing within bucket: a=%d b=%d", a.ID, b.ID)
	}
	if c.ID != 1 {
		t.Fatalf("first id in a fresh bucket = %d, want 1", c.ID)
	}
}

func TestListForReturnsRegistrationOrder(t *testing.T) {
	r := New()
	r.Register(TypeConsole, "first", nil)
	r.Register(TypeConsole, "second", nil)

	got := r.ListFor(TypeConsole)
	if len(got) != 2 || got[0].Dev != "first" || got[1].Dev != "second" {
		t.Fatalf("ListFor() = %+v, want [first second]", got)
	}
}

func TestListForUnknownTypeIsNil(t *testing.T) {
	r := New()
	if got := r.ListFor(TypeStat); got != nil {
		t.Fatalf("ListFor(unregistered) = %v, want nil", got)
	}
}
