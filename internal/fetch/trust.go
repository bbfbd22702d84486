package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
)

// TrustConfig holds the root certificate pool used to verify TLS peers.
// It is immutable after construction and safe for concurrent use by any
// number of fetches. Tests substitute their own pool via NewTrustConfig.
type TrustConfig struct {
	roots *x509.CertPool
}

// NewTrustConfig creates a trust configuration from an explicit root pool.
func NewTrustConfig(roots *x509.CertPool) *TrustConfig {
	return &TrustConfig{roots: roots}
}

func (tc *TrustConfig) clientConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName: serverName,
		RootCAs:    tc.roots,
	}
}

var defaultTrust struct {
	once sync.Once
	cfg  *TrustConfig
	err  error
}

// InitTLSTrust builds the process-wide default trust configuration from the
// system root bundle. It is idempotent and safe to invoke redundantly; callers
// that never fetch HTTPS never need to call it.
func InitTLSTrust() error {
	defaultTrust.once.Do(func() {
		roots, err := x509.SystemCertPool()
		if err != nil {
			defaultTrust.err = fmt.Errorf("loading system root certificates: %w", err)
			return
		}
		defaultTrust.cfg = NewTrustConfig(roots)
	})
	return defaultTrust.err
}

// DefaultTrust returns the shared default trust configuration, initializing
// it on first use.
func DefaultTrust() (*TrustConfig, error) {
	if err := InitTLSTrust(); err != nil {
		return nil, err
	}
	return defaultTrust.cfg, nil
}
