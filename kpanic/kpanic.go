// Package kpanic holds the kernel's fatal-error and assertion helpers.
// Spec §5 draws a hard line: PMM/VMM failures are ordinary returned
// errors, and panicking is reserved for the documented fatal cases —
// a page fault in an unmanaged kernel region, a corrupted invariant
// that would otherwise corrupt further state if execution continued.
package kpanic

import (
	"fmt"

	"kcore/internal/klog"
)

// Panic logs the formatted message as fatal and halts by panicking.
// Use only for the documented fatal conditions; every other failure
// path returns a status.Err instead.
func Panic(format string, args ...any) {
	klog.Fatalf(format, args...)
}

// Assert panics with msg if cond is false — the kernel's ASSERT(),
// used to catch invariant violations (a corrupted handler checksum
// chain, a freelist that doesn't balance) as close to the point of
// corruption as possible rather than letting them propagate.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		Panic("assertion failed: %s", fmt.Sprintf(format, args...))
	}
}
