package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

type transportKind uint8

const (
	transportPlain transportKind = iota
	transportTLS
)

// Transport is a duplex byte stream over TCP, optionally wrapped in TLS.
// The two variants are dispatched per call behind the same read/write
// surface so upper layers stay transport-agnostic. A Transport is owned by
// exactly one fetch at a time; ownership transfers, it is never shared.
type Transport struct {
	kind transportKind
	tcp  *net.TCPConn
	tls  *tls.Conn
	stop func() bool
}

// Connect opens a TCP connection to host:port with no-delay enabled and, for
// TLS, performs a handshake against the host's name using the given trust
// configuration (the process default when trust is nil). The context deadline
// is applied to the socket, and cancelling the context tears the connection
// down, unblocking any in-flight read.
func Connect(ctx context.Context, host, port string, useTLS bool, trust *TrustConfig) (*Transport, error) {
	return connectAddr(ctx, host, port, host, useTLS, trust)
}

// connectAddr dials dialHost (possibly a pre-resolved IP) while verifying TLS
// against serverName.
func connectAddr(ctx context.Context, dialHost, port, serverName string, useTLS bool, trust *TrustConfig) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(dialHost, port))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnect, dialHost, err)
	}

	tcp := conn.(*net.TCPConn)
	tcp.SetNoDelay(true)
	if deadline, ok := ctx.Deadline(); ok {
		tcp.SetDeadline(deadline)
	}

	t := &Transport{kind: transportPlain, tcp: tcp}

	if useTLS {
		if trust == nil {
			trust, err = DefaultTrust()
			if err != nil {
				tcp.Close()
				return nil, fmt.Errorf("%w: %v", ErrTLSHandshake, err)
			}
		}
		tlsConn := tls.Client(tcp, trust.clientConfig(serverName))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			tcp.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrTLSHandshake, serverName, err)
		}
		t.kind = transportTLS
		t.tls = tlsConn
	}

	t.stop = context.AfterFunc(ctx, func() { t.closeConn() })

	return t, nil
}

func (t *Transport) Read(p []byte) (int, error) {
	switch t.kind {
	case transportTLS:
		return t.tls.Read(p)
	default:
		return t.tcp.Read(p)
	}
}

func (t *Transport) Write(p []byte) (int, error) {
	switch t.kind {
	case transportTLS:
		return t.tls.Write(p)
	default:
		return t.tcp.Write(p)
	}
}

// writeAll writes the whole buffer or fails with ErrIO.
func (t *Transport) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := t.Write(p)
		if err != nil {
			return fmt.Errorf("%w: write: %v", ErrIO, err)
		}
		p = p[n:]
	}
	return nil
}

// Close releases the connection and detaches the cancellation watchdog.
// Safe to call more than once.
func (t *Transport) Close() error {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	return t.closeConn()
}

func (t *Transport) closeConn() error {
	switch t.kind {
	case transportTLS:
		return t.tls.Close()
	default:
		return t.tcp.Close()
	}
}
