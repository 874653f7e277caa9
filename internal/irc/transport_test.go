package irc

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContext stands in for testing.T.Context (Go 1.24+): the context is
// canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func selfSignedCert(t *testing.T, notBefore, notAfter time.Time) *x509.Certificate {
	t.Helper()
	cert, _ := selfSignedPair(t, notBefore, notAfter)
	return cert
}

// selfSignedPair returns a certificate for irc.test, localhost and
// 127.0.0.1 along with a tls.Certificate a listener can serve.
func selfSignedPair(t *testing.T, notBefore, notAfter time.Time) (*x509.Certificate, tls.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "irc.test"},
		DNSNames:              []string{"irc.test", "localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}
}

func poolOf(certs ...*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool
}

func TestVerifyPeer(t *testing.T) {
	now := time.Now()
	valid := selfSignedCert(t, now.Add(-time.Hour), now.Add(time.Hour))
	expired := selfSignedCert(t, now.Add(-2*time.Hour), now.Add(-time.Hour))

	tests := []struct {
		name        string
		cert        *x509.Certificate
		serverName  string
		roots       *x509.CertPool
		selfSigned  bool
		certExpired bool
		wantErr     bool
	}{
		{name: "trusted", cert: valid, serverName: "irc.test", roots: poolOf(valid)},
		{name: "wrong host", cert: valid, serverName: "other.test", roots: poolOf(valid), wantErr: true},
		{name: "unknown authority", cert: valid, serverName: "irc.test", roots: poolOf(), wantErr: true},
		{name: "unknown authority allowed", cert: valid, serverName: "irc.test", roots: poolOf(), selfSigned: true},
		{name: "expired", cert: expired, serverName: "irc.test", roots: poolOf(expired), wantErr: true},
		{name: "expired allowed", cert: expired, serverName: "irc.test", roots: poolOf(expired), certExpired: true},
		{name: "expired and unknown", cert: expired, serverName: "irc.test", roots: poolOf(), selfSigned: true, wantErr: true},
		{name: "expired and unknown allowed", cert: expired, serverName: "irc.test", roots: poolOf(), selfSigned: true, certExpired: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyPeer([]*x509.Certificate{tt.cert}, tt.serverName, tt.roots, tt.selfSigned, tt.certExpired, now)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, verifyPeer(nil, "irc.test", poolOf(), true, true, now))
}

func TestTLSConfig(t *testing.T) {
	c, err := NewClient(Options{Nick: "qaix", Server: "irc.test", Transport: TransportTLS, Port: 6697})
	require.NoError(t, err)
	cfg := c.tlsConfig()
	assert.Equal(t, "irc.test", cfg.ServerName)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Nil(t, cfg.VerifyConnection)

	c, err = NewClient(Options{Nick: "qaix", Server: "irc.test", Transport: TransportTLS, SelfSigned: true})
	require.NoError(t, err)
	cfg = c.tlsConfig()
	assert.True(t, cfg.InsecureSkipVerify)
	assert.NotNil(t, cfg.VerifyConnection)
}

func TestAddress(t *testing.T) {
	c, err := NewClient(Options{Nick: "qaix", Server: "irc.test", Port: 6697, Family: 6})
	require.NoError(t, err)
	assert.Equal(t, "irc.test:6697", c.address())
	assert.Equal(t, "tcp6", c.network())

	addrs, err := c.candidateAddrs(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"irc.test:6697"}, addrs)

	c, err = NewClient(Options{Nick: "qaix", Transport: TransportUnix, SocketPath: "/run/ircd.sock"})
	require.NoError(t, err)
	assert.Equal(t, "/run/ircd.sock", c.address())
}

// acceptOne accepts a single connection on ln, handshakes it when it is a
// TLS connection, and greets the client.
func acceptOne(t *testing.T, ln net.Listener) <-chan net.Conn {
	t.Helper()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		if tc, ok := conn.(*tls.Conn); ok {
			if err := tc.Handshake(); err != nil {
				conn.Close()
				close(accepted)
				return
			}
		}
		conn.Write([]byte(":irc.test NOTICE * :hello\r\n"))
		accepted <- conn
	}()
	return accepted
}

func listenerPort(t *testing.T, ln net.Listener) int {
	t.Helper()
	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

func readGreeting(t *testing.T, conn net.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := acceptOne(t, ln)

	c, err := NewClient(Options{Nick: "qaix", Server: "127.0.0.1", Port: listenerPort(t, ln), Family: 4, LocalAddress: "127.0.0.1"})
	require.NoError(t, err)
	conn, err := c.dial(testContext(t))
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()
	assert.Equal(t, ":irc.test NOTICE * :hello", readGreeting(t, conn))
	assert.Equal(t, "127.0.0.1", server.RemoteAddr().(*net.TCPAddr).IP.String())
}

func TestDialShuffledAddresses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := acceptOne(t, ln)

	c, err := NewClient(Options{Nick: "qaix", Server: "127.0.0.1", Port: listenerPort(t, ln), ShuffleAddresses: true, Family: 4})
	require.NoError(t, err)
	conn, err := c.dial(testContext(t))
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()
	assert.Equal(t, ":irc.test NOTICE * :hello", readGreeting(t, conn))
}

func TestDialRejectsBadLocalAddress(t *testing.T) {
	c, err := NewClient(Options{Nick: "qaix", Server: "127.0.0.1", LocalAddress: "not-an-ip"})
	require.NoError(t, err)
	_, err = c.dial(testContext(t))
	assert.ErrorContains(t, err, "invalid local address")
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listenerPort(t, ln)
	ln.Close()

	c, err := NewClient(Options{Nick: "qaix", Server: "127.0.0.1", Port: port})
	require.NoError(t, err)
	_, err = c.dial(testContext(t))
	assert.Error(t, err)
}

func TestDialUnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	accepted := acceptOne(t, ln)

	c, err := NewClient(Options{Nick: "qaix", Transport: TransportUnix, SocketPath: path})
	require.NoError(t, err)
	conn, err := c.dial(testContext(t))
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()
	assert.Equal(t, ":irc.test NOTICE * :hello", readGreeting(t, conn))
}

func TestDialTLS(t *testing.T) {
	now := time.Now()
	_, valid := selfSignedPair(t, now.Add(-time.Hour), now.Add(time.Hour))
	_, expired := selfSignedPair(t, now.Add(-2*time.Hour), now.Add(-time.Hour))

	tests := []struct {
		name        string
		cert        tls.Certificate
		selfSigned  bool
		certExpired bool
		wantErr     bool
	}{
		{name: "untrusted by default", cert: valid, wantErr: true},
		{name: "self-signed allowed", cert: valid, selfSigned: true},
		{name: "expired refused", cert: expired, selfSigned: true, wantErr: true},
		{name: "expired allowed", cert: expired, selfSigned: true, certExpired: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{tt.cert}})
			require.NoError(t, err)
			defer ln.Close()
			accepted := acceptOne(t, ln)

			c, err := NewClient(Options{
				Nick:        "qaix",
				Server:      "localhost",
				Port:        listenerPort(t, ln),
				Family:      4,
				Transport:   TransportTLS,
				SelfSigned:  tt.selfSigned,
				CertExpired: tt.certExpired,
				Logger:      quietLogger(),
			})
			require.NoError(t, err)
			conn, err := c.dial(testContext(t))
			if tt.wantErr {
				assert.ErrorContains(t, err, "tls handshake")
				return
			}
			require.NoError(t, err)
			defer conn.Close()
			_, ok := conn.(*tls.Conn)
			assert.True(t, ok)

			server := <-accepted
			require.NotNil(t, server)
			defer server.Close()
			assert.Equal(t, ":irc.test NOTICE * :hello", readGreeting(t, conn))
		})
	}
}

func TestRunOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := acceptOne(t, ln)

	opts := testOptions()
	opts.Server = "127.0.0.1"
	opts.Port = listenerPort(t, ln)
	c, err := NewClient(opts)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- c.Run(testContext(t)) }()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	r := bufio.NewReader(server)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "NICK qaix\r\n", line)

	c.Disconnect("bye")
	for {
		line, err = r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "QUIT") {
			break
		}
	}
	assert.Equal(t, "QUIT bye\r\n", line)
	server.Close()
	require.NoError(t, waitRun(t, done))
}
