package irc

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordConn is a write-only net.Conn that keeps everything written to it.
type recordConn struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (r *recordConn) Read([]byte) (int, error) { return 0, io.EOF }

func (r *recordConn) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(b)
}

func (r *recordConn) Close() error                     { return nil }
func (r *recordConn) LocalAddr() net.Addr              { return nil }
func (r *recordConn) RemoteAddr() net.Addr             { return nil }
func (r *recordConn) SetDeadline(time.Time) error      { return nil }
func (r *recordConn) SetReadDeadline(time.Time) error  { return nil }
func (r *recordConn) SetWriteDeadline(time.Time) error { return nil }

// lines returns and forgets what was written so far.
func (r *recordConn) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range strings.Split(r.buf.String(), "\r\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	r.buf.Reset()
	return out
}

// eventLog records events of the kinds it was attached to.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func recordEvents(c *Client, kinds ...EventKind) *eventLog {
	l := &eventLog{}
	for _, k := range kinds {
		c.On(k, func(ev Event) {
			l.mu.Lock()
			l.events = append(l.events, ev)
			l.mu.Unlock()
		})
	}
	return l
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) of(kind EventKind) []Event {
	var out []Event
	for _, ev := range l.all() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testOptions() Options {
	return Options{
		Server:     "irc.test",
		Nick:       "qaix",
		RetryCount: 0,
		Logger:     quietLogger(),
	}
}

// newOfflineClient returns a client whose writes land in a recordConn and
// whose input is fed with feed, without any network loop.
func newOfflineClient(t *testing.T, opts Options) (*Client, *recordConn) {
	t.Helper()
	c, err := NewClient(opts)
	require.NoError(t, err)
	rc := &recordConn{}
	c.conn = rc
	c.mu.Lock()
	c.sess.nick = c.opts.Nick
	c.mu.Unlock()
	return c, rc
}

func feed(c *Client, lines ...string) {
	for _, l := range lines {
		c.handleLine(l)
	}
}

// welcome registers an offline client as qaix!bot@host.test.
func welcome(c *Client) {
	feed(c, ":irc.test 001 qaix :Welcome to the Test Network qaix!bot@host.test")
}

// fakeServer is the far end of a net.Pipe that reads client lines in the
// background so the client never blocks on a write.
type fakeServer struct {
	t     *testing.T
	conn  net.Conn
	lines chan string
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	s := &fakeServer{t: t, conn: conn, lines: make(chan string, 256)}
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			s.lines <- strings.TrimRight(scanner.Text(), "\r")
		}
	}()
	return s
}

func (s *fakeServer) send(lines ...string) {
	s.t.Helper()
	for _, l := range lines {
		require.NoError(s.t, s.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
		_, err := io.WriteString(s.conn, l+"\r\n")
		require.NoError(s.t, err)
	}
}

// expect skips client lines until one starts with prefix.
func (s *fakeServer) expect(prefix string) string {
	s.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-s.lines:
			require.True(s.t, ok, "connection closed while waiting for %q", prefix)
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-timeout:
			require.FailNow(s.t, "timed out waiting for line", prefix)
		}
	}
}

// pipeDialer hands out the client ends of fresh pipes and the server ends
// on the returned channel.
func pipeDialer() (func(context.Context) (net.Conn, error), <-chan net.Conn) {
	servers := make(chan net.Conn, 4)
	return func(context.Context) (net.Conn, error) {
		client, server := net.Pipe()
		servers <- server
		return client, nil
	}, servers
}
