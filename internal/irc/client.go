package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAborted is returned from Run once the retry budget is used up.
	ErrAborted = errors.New("irc: retry budget exhausted")
	// ErrNotConnected is returned when a line cannot be written because
	// there is no live connection.
	ErrNotConnected = errors.New("irc: not connected")
	// ErrEmptyNick is returned by calls that need a nick and got none.
	ErrEmptyNick = errors.New("irc: nick is required")
	// ErrPingTimeout is carried by the netError event of a connection the
	// liveness timer gave up on.
	ErrPingTimeout = errors.New("irc: ping timeout")
)

const (
	defaultQuitMessage = "qaixbot says goodbye"
	disconnectGrace    = 3 * time.Second
	writeTimeout       = 30 * time.Second
	readBufferSize     = 4096
)

// Transport selects how the client reaches the server.
type Transport string

const (
	TransportPlain Transport = "plain"
	TransportTLS   Transport = "tls"
	TransportUnix  Transport = "unix"
)

// WebIRC holds the gateway credentials sent before registration.
type WebIRC struct {
	Pass string
	IP   string
	Host string
}

// Observer receives counters from the engine. All methods must be safe for
// concurrent use.
type Observer interface {
	LineReceived()
	LineSent()
	Reconnect()
	Event(kind EventKind)
}

// Options configures a Client. Zero durations and lengths take the defaults
// listed on each field.
type Options struct {
	Server           string
	Port             int // 6667
	Transport        Transport
	SocketPath       string
	Family           int // 0 for any, 4 or 6
	LocalAddress     string
	ShuffleAddresses bool

	// SelfSigned and CertExpired relax certificate checks for TLS.
	SelfSigned  bool
	CertExpired bool
	// TLSConfig replaces the generated TLS configuration entirely.
	TLSConfig *tls.Config

	Nick     string
	UserName string // "qaixbot"
	RealName string // "qaixbot IRC client"
	Password string
	SASL     bool
	WebIRC   WebIRC

	// Channels are joined after the MOTD, each as "name" or "name key".
	Channels   []string
	AutoRejoin bool

	// RetryCount bounds reconnect attempts; negative means unlimited.
	RetryCount int
	RetryDelay time.Duration // 2s

	FloodProtection      bool
	FloodProtectionDelay time.Duration // 1s

	StripColors     bool
	ChannelPrefixes string // "&#"
	MessageSplit    int    // 512

	PingSilence time.Duration // 15s
	PingTimeout time.Duration // 8s

	Debug      bool
	ShowErrors bool

	Logger   *log.Logger
	Observer Observer

	// Dialer overrides transport selection, mostly for tests.
	Dialer func(ctx context.Context) (net.Conn, error)
}

func (o *Options) setDefaults() {
	if o.Port == 0 {
		o.Port = 6667
	}
	if o.Transport == "" {
		o.Transport = TransportPlain
	}
	if o.UserName == "" {
		o.UserName = "qaixbot"
	}
	if o.RealName == "" {
		o.RealName = "qaixbot IRC client"
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.FloodProtectionDelay == 0 {
		o.FloodProtectionDelay = time.Second
	}
	if o.ChannelPrefixes == "" {
		o.ChannelPrefixes = "&#"
	}
	if o.MessageSplit == 0 {
		o.MessageSplit = 512
	}
	if o.PingSilence == 0 {
		o.PingSilence = 15 * time.Second
	}
	if o.PingTimeout == 0 {
		o.PingTimeout = 8 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

type signalKind int

const (
	signalPing signalKind = iota
	signalTimeout
)

// connSignal is raised by a connection's liveness timer. conn identifies the
// connection the timer belonged to.
type connSignal struct {
	conn net.Conn
	kind signalKind
}

// Client is one IRC session. Protocol state is only mutated by the
// connection loop; other goroutines read it through the accessors and send
// through the command methods.
type Client struct {
	opts Options
	log  *log.Logger

	mu       sync.RWMutex
	sess     *session
	autoJoin []string
	pending  map[string]string // channel key -> join entry awaiting confirmation

	bus eventBus

	connMu   sync.Mutex
	conn     net.Conn
	queue    *floodQueue
	quitting bool
	stop     chan struct{}

	signals chan connSignal
	pingSeq int
}

// NewClient validates opts and returns an idle client. Call Run to connect.
func NewClient(opts Options) (*Client, error) {
	if opts.Nick == "" {
		return nil, ErrEmptyNick
	}
	switch opts.Transport {
	case "", TransportPlain, TransportTLS:
		if opts.Server == "" && opts.Dialer == nil {
			return nil, fmt.Errorf("irc: server is required")
		}
	case TransportUnix:
		if opts.SocketPath == "" && opts.Dialer == nil {
			return nil, fmt.Errorf("irc: socket path is required for the unix transport")
		}
	default:
		return nil, fmt.Errorf("irc: unknown transport %q", opts.Transport)
	}
	opts.setDefaults()

	c := &Client{
		opts:     opts,
		log:      opts.Logger,
		sess:     newSession(opts.ChannelPrefixes),
		autoJoin: append([]string(nil), opts.Channels...),
		pending:  map[string]string{},
		signals:  make(chan connSignal, 4),
	}
	return c, nil
}

// Options returns the options the client was built with, defaults applied.
func (c *Client) Options() Options {
	return c.opts
}

// On registers fn for every event of kind. The returned func unregisters it.
func (c *Client) On(kind EventKind, fn Handler) (remove func()) {
	return c.bus.subscribe(kind, fn)
}

// OnChannel registers fn for events of kind whose Channel is channel,
// compared under the server's case mapping.
func (c *Client) OnChannel(kind EventKind, channel string, fn Handler) (remove func()) {
	return c.bus.subscribe(kind, func(ev Event) {
		if ev.Channel == "" {
			return
		}
		c.mu.RLock()
		same := c.sess.casefold(ev.Channel) == c.sess.casefold(channel)
		c.mu.RUnlock()
		if same {
			fn(ev)
		}
	})
}

func (c *Client) emit(ev Event) {
	if c.opts.Observer != nil {
		c.opts.Observer.Event(ev.Kind)
	}
	c.bus.publish(ev)
}

func (c *Client) debugf(format string, args ...any) {
	if c.opts.Debug {
		c.log.Printf(format, args...)
	}
}

// Run connects and keeps the session alive until ctx is cancelled,
// Disconnect is called, or the retry budget is exhausted, in which case it
// returns ErrAborted.
func (c *Client) Run(ctx context.Context) error {
	stop := c.beginRun()

	retries := 0
	for {
		registered := c.runSession(ctx, stop)
		if c.disconnectRequested() || ctx.Err() != nil {
			return nil
		}
		if registered {
			retries = 0
		}

		if c.opts.RetryCount >= 0 && retries >= c.opts.RetryCount {
			c.log.Printf("Maximum retry count (%d) reached, aborting", c.opts.RetryCount)
			c.emit(Event{Kind: EventAbort, Count: retries})
			return ErrAborted
		}
		retries++
		if c.opts.Observer != nil {
			c.opts.Observer.Reconnect()
		}
		c.debugf("Disconnected, retrying in %s", c.opts.RetryDelay)

		t := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-t.C:
		case <-stop:
			t.Stop()
			return nil
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}
}

func (c *Client) beginRun() chan struct{} {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.quitting = false
	c.stop = make(chan struct{})
	return c.stop
}

func (c *Client) disconnectRequested() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.quitting
}

// resetSession drops all per-connection state. The auto-join list survives.
func (c *Client) resetSession() {
	c.mu.Lock()
	c.sess = newSession(c.opts.ChannelPrefixes)
	c.pending = map[string]string{}
	c.mu.Unlock()
}

// runSession drives one connection from dial to close and reports whether
// it got as far as registration.
func (c *Client) runSession(ctx context.Context, stop chan struct{}) bool {
	c.resetSession()

	conn, err := c.dialUntilStopped(ctx, stop)
	if err != nil {
		if c.disconnectRequested() {
			return false
		}
		c.log.Printf("Connect to %s failed: %v", c.address(), err)
		c.emit(Event{Kind: EventNetError, Err: err})
		return false
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connMu.Lock()
	// Disconnect found no transport to close while we were dialing.
	if c.quitting {
		c.connMu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	var queue *floodQueue
	if c.opts.FloodProtection {
		queue = newFloodQueue(c.writeQueued)
		c.queue = queue
	}
	c.connMu.Unlock()
	if queue != nil {
		go queue.run(sessCtx, intervalTicker(c.opts.FloodProtectionDelay))
	}

	ping := newPingTimer(c.opts.PingSilence, c.opts.PingTimeout,
		func() { c.raise(conn, signalPing) },
		func() { c.raise(conn, signalTimeout) })

	reads := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	defer func() {
		ping.stop()
		close(done)
		c.connMu.Lock()
		c.conn = nil
		c.queue = nil
		c.connMu.Unlock()
		conn.Close()
	}()

	go func() {
		buf := make([]byte, readBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case reads <- chunk:
				case <-done:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	c.register()
	ping.start()
	c.emit(Event{Kind: EventConnect})

	var fr framer
	for {
		select {
		case chunk := <-reads:
			ping.notifyOfActivity()
			for _, line := range fr.feed(chunk) {
				c.handleLine(line)
			}

		case err := <-readErr:
			if tail := fr.reset(); tail != "" {
				c.debugf("Dropped unterminated line %q", tail)
			}
			c.connectionClosed(err)
			return c.registered()

		case sig := <-c.signals:
			// Signals from a superseded connection's timer are ignored.
			if sig.conn != conn {
				continue
			}
			switch sig.kind {
			case signalPing:
				c.pingSeq++
				if err := c.Send("PING", strconv.Itoa(c.pingSeq)); err != nil {
					c.debugf("Send PING: %v", err)
				}
			case signalTimeout:
				c.log.Printf("Ping timeout on %s, dropping connection", c.address())
				c.emit(Event{Kind: EventNetError, Err: ErrPingTimeout})
				c.emit(Event{Kind: EventDisconnect, Err: ErrPingTimeout})
				return c.registered()
			}

		case <-stop:
			ping.stop()
			stop = nil
			time.AfterFunc(disconnectGrace, func() { conn.Close() })

		case <-sessCtx.Done():
			return c.registered()
		}
	}
}

// dialUntilStopped dials with a context that Disconnect cancels.
func (c *Client) dialUntilStopped(ctx context.Context, stop chan struct{}) (net.Conn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-dialCtx.Done():
		}
	}()
	return c.dial(dialCtx)
}

func (c *Client) connectionClosed(err error) {
	requested := c.disconnectRequested()
	switch {
	case errors.Is(err, io.EOF):
		c.debugf("Connection got end of stream")
		c.emit(Event{Kind: EventConnectionEnd})
	case requested:
		// the transport was closed after QUIT
	default:
		c.log.Printf("Network error: %v", err)
		c.emit(Event{Kind: EventNetError, Err: err})
	}
	if requested {
		c.emit(Event{Kind: EventDisconnect})
		return
	}
	c.emit(Event{Kind: EventDisconnect, Err: err})
}

func (c *Client) registered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.registered
}

// raise is called from timer goroutines and must never block.
func (c *Client) raise(conn net.Conn, kind signalKind) {
	select {
	case c.signals <- connSignal{conn: conn, kind: kind}:
	default:
	}
}

// register sends the registration handshake.
func (c *Client) register() {
	o := c.opts
	if o.WebIRC.Pass != "" && o.WebIRC.IP != "" && o.WebIRC.Host != "" {
		c.sendLogged("WEBIRC", o.WebIRC.Pass, o.UserName, o.WebIRC.Host, o.WebIRC.IP)
	}
	if o.SASL {
		c.sendLogged("CAP", "REQ", "sasl")
	} else if o.Password != "" {
		c.sendLogged("PASS", o.Password)
	}

	c.debugf("Sending irc NICK/USER")
	c.sendLogged("NICK", o.Nick)
	c.sendLogged("USER", o.UserName, "8", "*", o.RealName)

	c.mu.Lock()
	c.sess.nick = o.Nick
	c.sess.updateMaxLineLength()
	c.mu.Unlock()
}

// handleLine parses and dispatches one inbound line.
func (c *Client) handleLine(line string) {
	if c.opts.Observer != nil {
		c.opts.Observer.LineReceived()
	}
	c.debugf("RECV: %s", line)

	msg, err := ParseMessage(line, c.opts.StripColors)
	if err != nil {
		if c.disconnectRequested() {
			return
		}
		c.log.Printf("Parse error: %v", err)
		c.emit(Event{Kind: EventParseError, Err: err})
		return
	}
	c.emit(Event{Kind: EventRaw, Message: msg})

	var out outbox
	c.mu.Lock()
	c.dispatch(msg, &out)
	c.mu.Unlock()

	for _, args := range out.sends {
		c.sendLogged(args[0], args[1:]...)
	}
	for _, ev := range out.events {
		c.emit(ev)
	}
}

// Send encodes one command and writes it, through the flood queue when
// flood protection is on.
func (c *Client) Send(command string, args ...string) error {
	line, err := encodeLine(command, args...)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	queue := c.queue
	c.connMu.Unlock()
	if queue != nil {
		queue.push(line)
		return nil
	}
	return c.writeLine(line)
}

func (c *Client) sendLogged(command string, args ...string) {
	if err := c.Send(command, args...); err != nil {
		c.log.Printf("Send %s: %v", command, err)
	}
}

func (c *Client) writeQueued(line string) {
	if err := c.writeLine(line); err != nil {
		c.debugf("Drop queued line: %v", err)
	}
}

func (c *Client) writeLine(line string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil || c.quitting {
		return ErrNotConnected
	}
	return c.writeLocked(line)
}

// writeLocked must be called with connMu held.
func (c *Client) writeLocked(line string) error {
	c.debugf("SEND: %s", strings.TrimRight(line, "\r\n"))
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.debugf("Set write deadline: %v", err)
	}
	if _, err := io.WriteString(c.conn, line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if c.opts.Observer != nil {
		c.opts.Observer.LineSent()
	}
	return nil
}

// Disconnect sends QUIT ahead of any queued lines, stops reconnecting and
// closes the connection once the server hangs up or a grace period passes.
func (c *Client) Disconnect(message string) {
	if message == "" {
		message = defaultQuitMessage
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.quitting {
		return
	}
	c.quitting = true
	if c.stop != nil {
		close(c.stop)
	}
	if c.queue != nil {
		if n := c.queue.clear(); n > 0 {
			c.debugf("Dropped %d queued lines on disconnect", n)
		}
	}

	conn := c.conn
	if conn == nil {
		return
	}
	if line, err := encodeLine("QUIT", message); err == nil {
		if err := c.writeLocked(line); err != nil {
			c.debugf("Send QUIT: %v", err)
		}
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	time.AfterFunc(disconnectGrace, func() { conn.Close() })
}

// Connected reports whether a transport is currently open.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil && !c.quitting
}

// outbox collects what a handler wants done once the state lock is released.
type outbox struct {
	events []Event
	sends  [][]string
}

func (o *outbox) emit(ev Event) {
	o.events = append(o.events, ev)
}

func (o *outbox) send(command string, args ...string) {
	o.sends = append(o.sends, append([]string{command}, args...))
}
