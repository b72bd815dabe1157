package stream

import (
	"io"

	"golang.org/x/text/width"

	"kcore/internal/status"
)

// ConsoleOps is a Stream's Ops backed by a host writer (and, for input,
// bytes delivered through PushByte). Outgoing text is folded from
// fullwidth CJK forms to their narrow (halfwidth) forms with
// golang.org/x/text/width, the same normalization a VT100-class
// terminal driver applies so mixed-width text renders with consistent
// column widths — the one genuinely text-processing concern this
// kernel core has, since it owns the console's output path.
type ConsoleOps struct {
	w io.Writer
}

// NewConsoleOps wraps w as the backing writer for a console stream.
func NewConsoleOps(w io.Writer) *ConsoleOps {
	return &ConsoleOps{w: w}
}

// Read is not supported directly on ConsoleOps; console input arrives
// via Stream.PushByte from the keyboard interrupt handler and is
// consumed with Stream.WaitChar.
func (c *ConsoleOps) Read(buf []byte) (int, status.Err) {
	return 0, status.NOTSUP
}

// Write folds the payload to narrow form and writes it to the backing
// writer.
func (c *ConsoleOps) Write(buf []byte) (int, status.Err) {
	folded := width.Narrow.String(string(buf))
	n, err := c.w.Write([]byte(folded))
	if err != nil {
		return n, status.IO
	}
	return len(buf), status.OK
}

// Flush is a no-op unless w implements an explicit flush.
func (c *ConsoleOps) Flush() status.Err {
	type flusher interface{ Flush() error }
	if f, ok := c.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return status.IO
		}
	}
	return status.OK
}
