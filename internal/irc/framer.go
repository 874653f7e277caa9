package irc

import (
	"regexp"
)

var lineDelimiter = regexp.MustCompile(`\r\n|\r|\n`)

// framer splits a byte stream into protocol lines. A chunk boundary may fall
// anywhere, including between the \r and \n of a terminator.
type framer struct {
	pending string
}

// feed appends chunk to the pending buffer and returns every complete,
// non-empty line. An unterminated tail is kept for the next call.
func (f *framer) feed(chunk []byte) []string {
	buf := f.pending + string(chunk)
	parts := lineDelimiter.Split(buf, -1)

	// A non-empty last fragment has no terminator yet.
	last := parts[len(parts)-1]
	parts = parts[:len(parts)-1]
	f.pending = last

	// A \r\n split across chunks yields an empty line here.
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

// reset drops any buffered partial line and returns it.
func (f *framer) reset() string {
	tail := f.pending
	f.pending = ""
	return tail
}
