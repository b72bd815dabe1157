// Package smatcher is a small string-matching cursor used by kernel
// command-line and config-line parsers, ported from yjkos's
// kernel/lib/smatcher.h/.c.
package smatcher

import "strings"

// Matcher walks left to right over a fixed string, consuming matched
// prefixes.
type Matcher struct {
	str string
	pos int
}

// New returns a Matcher positioned at the start of s.
func New(s string) *Matcher { return &Matcher{str: s} }

// Remaining returns the unconsumed suffix.
func (m *Matcher) Remaining() string { return m.str[m.pos:] }

// Slice returns a Matcher over str[first:last], independent of m's cursor.
func (m *Matcher) Slice(first, last int) *Matcher {
	return &Matcher{str: m.str[first:last]}
}

// ConsumeStringIfMatch consumes s if the remaining input starts with it
// exactly, returning true on success.
func (m *Matcher) ConsumeStringIfMatch(s string) bool {
	if strings.HasPrefix(m.Remaining(), s) {
		m.pos += len(s)
		return true
	}
	return false
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// ConsumeWordIfMatch consumes s only if it appears at the cursor and is
// itself followed by whitespace or end of input; the trailing whitespace
// is NOT consumed.
func (m *Matcher) ConsumeWordIfMatch(s string) bool {
	rest := m.Remaining()
	if !strings.HasPrefix(rest, s) {
		return false
	}
	after := rest[len(s):]
	if after != "" && !isSpace(after[0]) {
		return false
	}
	m.pos += len(s)
	return true
}

// SkipWhitespace advances the cursor past any run of whitespace.
func (m *Matcher) SkipWhitespace() {
	rest := m.Remaining()
	i := 0
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	m.pos += i
}

// ConsumeWord consumes and returns the next whitespace-delimited word, or
// ok=false if the cursor is at the end of input.
func (m *Matcher) ConsumeWord() (word string, ok bool) {
	rest := m.Remaining()
	if rest == "" {
		return "", false
	}
	i := 0
	for i < len(rest) && !isSpace(rest[i]) {
		i++
	}
	if i == 0 {
		return "", false
	}
	m.pos += i
	return rest[:i], true
}
