// Package pathreader iterates the components of a slash-separated path
// one at a time. Ported from yjkos's
// kernel/lib/pathreader.h/.c.
package pathreader

import (
	"strings"

	"kcore/internal/status"
)

// MaxNameLen mirrors NAME_MAX from the original; components longer than
// this make Next report status.NAMETOOLONG.
const MaxNameLen = 255

// Reader walks the components of a path left to right.
type Reader struct {
	remaining string
}

// New returns a Reader positioned at the start of path.
func New(path string) *Reader {
	return &Reader{remaining: strings.TrimPrefix(path, "/")}
}

// Next returns the next path component. It reports status.EOF once the
// path is exhausted and status.NAMETOOLONG if a component exceeds
// MaxNameLen (the remaining path is left past the offending component).
func (r *Reader) Next() (name string, err status.Err) {
	for r.remaining != "" {
		idx := strings.IndexByte(r.remaining, '/')
		var comp string
		if idx < 0 {
			comp, r.remaining = r.remaining, ""
		} else {
			comp, r.remaining = r.remaining[:idx], r.remaining[idx+1:]
		}
		if comp == "" {
			continue // collapse repeated slashes
		}
		if len(comp) > MaxNameLen {
			return "", status.NAMETOOLONG
		}
		return comp, status.OK
	}
	return "", status.EOF
}
