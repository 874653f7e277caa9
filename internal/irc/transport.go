package irc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"
)

const dialTimeout = 30 * time.Second

func (c *Client) address() string {
	if c.opts.Transport == TransportUnix {
		return c.opts.SocketPath
	}
	return net.JoinHostPort(c.opts.Server, strconv.Itoa(c.opts.Port))
}

func (c *Client) network() string {
	switch c.opts.Family {
	case 4:
		return "tcp4"
	case 6:
		return "tcp6"
	default:
		return "tcp"
	}
}

// dial opens the configured transport. For TLS the handshake is complete
// when it returns.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if c.opts.Dialer != nil {
		return c.opts.Dialer(ctx)
	}

	d := &net.Dialer{Timeout: dialTimeout}
	if c.opts.Transport == TransportUnix {
		return d.DialContext(ctx, "unix", c.opts.SocketPath)
	}
	if c.opts.LocalAddress != "" {
		ip := net.ParseIP(c.opts.LocalAddress)
		if ip == nil {
			return nil, fmt.Errorf("invalid local address %q", c.opts.LocalAddress)
		}
		d.LocalAddr = &net.TCPAddr{IP: ip}
	}

	addrs, err := c.candidateAddrs(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, addr := range addrs {
		conn, err := d.DialContext(ctx, c.network(), addr)
		if err != nil {
			lastErr = err
			continue
		}
		if c.opts.Transport != TransportTLS {
			return conn, nil
		}
		tlsConn := tls.Client(conn, c.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			lastErr = fmt.Errorf("tls handshake with %s: %w", addr, err)
			continue
		}
		return tlsConn, nil
	}
	return nil, lastErr
}

// candidateAddrs lists the addresses to try in order. With address
// shuffling every resolved address is tried in random order so load spreads
// across a round-robin pool.
func (c *Client) candidateAddrs(ctx context.Context) ([]string, error) {
	port := strconv.Itoa(c.opts.Port)
	if !c.opts.ShuffleAddresses {
		return []string{net.JoinHostPort(c.opts.Server, port)}, nil
	}

	network := "ip"
	switch c.opts.Family {
	case 4:
		network = "ip4"
	case 6:
		network = "ip6"
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, network, c.opts.Server)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c.opts.Server, err)
	}
	rand.Shuffle(len(ips), func(i, j int) { ips[i], ips[j] = ips[j], ips[i] })

	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = net.JoinHostPort(ip.Unmap().String(), port)
	}
	return addrs, nil
}

func (c *Client) tlsConfig() *tls.Config {
	if c.opts.TLSConfig != nil {
		return c.opts.TLSConfig.Clone()
	}
	cfg := &tls.Config{
		ServerName: c.opts.Server,
		MinVersion: tls.VersionTLS12,
	}
	if !c.opts.SelfSigned && !c.opts.CertExpired {
		return cfg
	}

	// Standard verification is replaced by one that tolerates the
	// configured failures and nothing else.
	cfg.InsecureSkipVerify = true
	cfg.VerifyConnection = func(cs tls.ConnectionState) error {
		err := verifyPeer(cs.PeerCertificates, c.opts.Server, nil, c.opts.SelfSigned, c.opts.CertExpired, time.Now())
		if err == nil && c.opts.Debug {
			c.log.Printf("Accepted relaxed certificate for %s", c.opts.Server)
		}
		return err
	}
	return cfg
}

// verifyPeer checks a certificate chain against roots (the system pool when
// nil), accepting an unknown authority when selfSigned is set and an expired
// certificate when certExpired is set.
func verifyPeer(chain []*x509.Certificate, serverName string, roots *x509.CertPool, selfSigned, certExpired bool, now time.Time) error {
	if len(chain) == 0 {
		return errors.New("tls: server sent no certificate")
	}
	leaf := chain[0]

	opts := x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
		CurrentTime:   now,
	}
	for _, cert := range chain[1:] {
		opts.Intermediates.AddCert(cert)
	}

	_, err := leaf.Verify(opts)
	var invalid x509.CertificateInvalidError
	if err != nil && certExpired && errors.As(err, &invalid) && invalid.Reason == x509.Expired {
		opts.CurrentTime = leaf.NotAfter
		_, err = leaf.Verify(opts)
	}
	if err == nil {
		return nil
	}

	var unknown x509.UnknownAuthorityError
	if selfSigned && errors.As(err, &unknown) {
		if now.After(leaf.NotAfter) && !certExpired {
			return x509.CertificateInvalidError{Cert: leaf, Reason: x509.Expired}
		}
		return nil
	}
	return err
}
