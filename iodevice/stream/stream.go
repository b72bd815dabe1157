// Package stream is the kernel's stream abstraction: (ops, data) pairs
// exposing read/write/flush, plus stream_waitchar's blocking-with-
// timeout wait for the next available byte. Ported from yjkos's
// original_source/include/kernel/io/stream.h; the waitchar buffer uses
// internal/queue the same way biscuit's circbuf.Circbuf_t backs its
// tty input queue (biscuit/src/circbuf).
package stream

import (
	"time"

	"kcore/internal/queue"
	"kcore/internal/status"
)

// Ops is the operation set a stream implementation provides.
type Ops interface {
	Read(buf []byte) (n int, err status.Err)
	Write(buf []byte) (n int, err status.Err)
}

// Flusher is implemented by Ops that support an explicit flush.
type Flusher interface {
	Flush() status.Err
}

// Stream pairs an Ops implementation with caller context and a
// waitchar buffer fed by PushByte (typically from an interrupt
// handler delivering one byte at a time).
type Stream struct {
	Ops  Ops
	Data any

	buf    *queue.Ring[byte]
	notify chan struct{}
}

// New wraps ops/data into a Stream with a waitchar buffer of the given
// capacity.
func New(ops Ops, data any, bufCapacity int) *Stream {
	return &Stream{
		Ops:    ops,
		Data:   data,
		buf:    queue.New[byte](bufCapacity),
		notify: make(chan struct{}, 1),
	}
}

// Read delegates to the underlying Ops.
func (s *Stream) Read(buf []byte) (int, status.Err) { return s.Ops.Read(buf) }

// Write delegates to the underlying Ops.
func (s *Stream) Write(buf []byte) (int, status.Err) { return s.Ops.Write(buf) }

// Flush delegates to the underlying Ops if it implements Flusher,
// otherwise is a no-op.
func (s *Stream) Flush() status.Err {
	if f, ok := s.Ops.(Flusher); ok {
		return f.Flush()
	}
	return status.OK
}

// PushByte delivers one byte into the waitchar buffer, waking any
// blocked WaitChar caller. A full buffer drops the byte, the same
// backpressure biscuit's tty input queue applies.
func (s *Stream) PushByte(b byte) {
	if err := s.buf.Enqueue(b); err != status.OK {
		return
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// WaitChar blocks until at least one byte is available or timeout
// elapses since the call, whichever comes first; timeout == 0 means
// wait indefinitely. A timeout expiry returns status.EOF, the
// distinguished marker callers must check for — it does not mean the
// stream itself has closed.
func (s *Stream) WaitChar(timeout time.Duration) (byte, status.Err) {
	for {
		if b, ok := s.buf.Dequeue(); ok {
			return b, status.OK
		}
		if timeout == 0 {
			<-s.notify
			continue
		}
		select {
		case <-s.notify:
			continue
		case <-time.After(timeout):
			return 0, status.EOF
		}
	}
}
