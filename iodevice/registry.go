// Package iodevice is the kernel's device registry: devices are
// bucketed by type tag (an interned string identity, compared the way
// the original compares interned C string pointers) with each bucket
// owning an ordered list and an atomic monotonic id counter. Device
// type tags are grounded in biscuit's defs.D_* device identifiers
// (biscuit/src/defs/device.go), carried over as named tags rather than
// raw integers since Go has no equivalent of comparing interned
// pointers for type identity.
package iodevice

import (
	"sync"
	"sync/atomic"

	"kcore/arch"
	"kcore/internal/klog"
	"kcore/internal/list"
)

var log = klog.Sub("iodevice")

// Type is an interned device type tag. The named constants below
// mirror biscuit's defs.D_* device identifiers.
type Type string

const (
	TypeConsole Type = "console"
	TypeDgram   Type = "dgram-socket"
	TypeStream  Type = "stream-socket"
	TypeNull    Type = "null"
	TypeRawDisk Type = "raw-disk"
	TypeStat    Type = "stat"
	TypeProf    Type = "prof"
)

// Device is one registered device instance.
type Device struct {
	ID   uint64
	Type Type
	Dev  any // the concrete device (e.g. a *stream.Stream), opaque here
	Data any // caller context, threaded through unchanged
}

type bucket struct {
	nextID atomic.Uint64
	mu     sync.Mutex
	items  *list.List[*Device]
}

// Registry is the process-wide device registry.
type Registry struct {
	mu      sync.Mutex
	buckets map[Type]*bucket
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{buckets: make(map[Type]*bucket)}
}

func (r *Registry) bucketFor(t Type) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[t]
	if !ok {
		b = &bucket{items: list.New[*Device]()}
		r.buckets[t] = b
	}
	return b
}

// Register inserts a new device into its type's bucket in an
// interrupt-disabling critical section. The assigned id is unique and
// strictly increasing within that bucket.
func (r *Registry) Register(typ Type, dev any, data any) *Device {
	b := r.bucketFor(typ)

	prev := arch.InterruptsDisable()
	defer arch.InterruptsRestore(prev)

	b.mu.Lock()
	defer b.mu.Unlock()

	d := &Device{
		ID:   b.nextID.Add(1),
		Type: typ,
		Dev:  dev,
		Data: data,
	}
	b.items.PushBack(d)
	log.WithField("type", typ).WithField("id", d.ID).Debug("device registered")
	return d
}

// ListFor returns every device registered under typ, in registration
// order, or nil if the bucket doesn't exist.
func (r *Registry) ListFor(typ Type) []*Device {
	r.mu.Lock()
	b, ok := r.buckets[typ]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Device, 0, b.items.Len())
	b.items.Each(func(n *list.Node[*Device]) { out = append(out, n.Value) })
	return out
}
