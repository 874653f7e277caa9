package irc

import (
	"regexp"
	"unicode/utf8"
)

// fallbackLineLength is used before the server has told us who we are.
const fallbackLineLength = 450

var newline = regexp.MustCompile(`\r?\n`)

// splitMessage breaks text into lines of at most maxLength bytes.
// Explicit newlines always start a new line and empty lines are dropped.
func splitMessage(text string, maxLength int) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range newline.Split(text, -1) {
		if line == "" {
			continue
		}
		out = append(out, splitLongLine(line, maxLength)...)
	}
	return out
}

func isSplitSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// splitLongLine cuts line into pieces of at most maxLength bytes,
// preferring the last space at or before the limit. The space at a cut is
// dropped. Without one the line is cut hard on a rune boundary. Bytes are
// never rewritten, so invalid UTF-8 passes through unchanged.
func splitLongLine(line string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = fallbackLineLength
	}

	var out []string
	for len(line) > 0 {
		if len(line) <= maxLength {
			out = append(out, line)
			break
		}

		cut, wsLength := maxLength, 1
		if !isSplitSpace(line[maxLength]) {
			cut = -1
			for i := maxLength - 1; i > 0; i-- {
				if isSplitSpace(line[i]) {
					cut = i
					break
				}
			}
			if cut < 0 {
				cut, wsLength = hardCut(line, maxLength), 0
			}
		}

		out = append(out, line[:cut])
		line = line[cut+wsLength:]
	}
	return out
}

// hardCut backs off from maxLength to the start of the rune it would split.
func hardCut(line string, maxLength int) int {
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if cut == 0 {
		// One rune wider than the budget
		return maxLength
	}
	return cut
}
