package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramerChunkBoundaries(t *testing.T) {
	stream := ":irc.test 001 qaix :Welcome\r\nPING :abc\r\n:a!b@c PRIVMSG #x :hi there\n:irc.test 376 qaix :End\r"
	want := []string{
		":irc.test 001 qaix :Welcome",
		"PING :abc",
		":a!b@c PRIVMSG #x :hi there",
		":irc.test 376 qaix :End",
	}

	var whole framer
	assert.Equal(t, want, whole.feed([]byte(stream)))

	// Every two-way split must produce the same lines.
	for i := 0; i <= len(stream); i++ {
		var f framer
		got := append(f.feed([]byte(stream[:i])), f.feed([]byte(stream[i:]))...)
		assert.Equal(t, want, got, "split at %d", i)
	}

	// So must byte-at-a-time delivery.
	var f framer
	var got []string
	for i := 0; i < len(stream); i++ {
		got = append(got, f.feed([]byte{stream[i]})...)
	}
	assert.Equal(t, want, got)
}

func TestFramerKeepsPartialLine(t *testing.T) {
	var f framer
	assert.Empty(t, f.feed([]byte("PING :par")))
	assert.Equal(t, "PING :par", f.pending)
	assert.Equal(t, []string{"PING :partial"}, f.feed([]byte("tial\r\n")))
	assert.Empty(t, f.pending)
}

func TestFramerDropsEmptyLines(t *testing.T) {
	var f framer
	assert.Equal(t, []string{"A", "B"}, f.feed([]byte("\r\n\r\nA\n\n\rB\r\n")))
}

func TestFramerReset(t *testing.T) {
	var f framer
	f.feed([]byte("half"))
	assert.Equal(t, "half", f.reset())
	assert.Empty(t, f.reset())
	assert.Equal(t, []string{"next"}, f.feed([]byte("next\n")))
}
