package fetch

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedServer starts a TLS listener with a freshly generated certificate
// and returns its address plus a trust configuration that accepts it.
func selfSignedServer(t *testing.T, payload string) (string, *TrustConfig) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "paket-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.WriteString(c, payload)
			}(conn)
		}
	}()

	return ln.Addr().String(), NewTrustConfig(pool)
}

func TestConnectPlain(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.WriteString(conn, "pong")
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	tr, err := Connect(context.Background(), host, port, false, nil)
	require.NoError(t, err)
	defer tr.Close()

	got, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
}

func TestConnectTLSWithSubstitutedTrust(t *testing.T) {
	addr, trust := selfSignedServer(t, "secure")

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	tr, err := Connect(context.Background(), host, port, true, trust)
	require.NoError(t, err)
	defer tr.Close()

	got, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(got))
}

func TestConnectTLSUntrustedPeer(t *testing.T) {
	addr, _ := selfSignedServer(t, "secure")

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	// An empty pool trusts nobody.
	_, err = Connect(context.Background(), host, port, true, NewTrustConfig(x509.NewCertPool()))
	assert.ErrorIs(t, err, ErrTLSHandshake)
}

func TestConnectRefused(t *testing.T) {
	// Grab a port and close it so the connect target is dead.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	ln.Close()

	_, err = Connect(context.Background(), host, port, false, nil)
	assert.ErrorIs(t, err, ErrConnect)
}

func TestConnectCancelledContextTearsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Hold the connection open without writing.
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	tr, err := Connect(ctx, host, port, false, nil)
	require.NoError(t, err)
	defer tr.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = tr.Read(make([]byte, 1))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInitTLSTrustIdempotent(t *testing.T) {
	require.NoError(t, InitTLSTrust())
	require.NoError(t, InitTLSTrust())

	first, err := DefaultTrust()
	require.NoError(t, err)
	second, err := DefaultTrust()
	require.NoError(t, err)
	assert.Same(t, first, second)
}
