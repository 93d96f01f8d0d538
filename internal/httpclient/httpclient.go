// Package httpclient builds the HTTP client shared by the Firefly III and
// FiDI integrations.
package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"fjacquet/firefly-preimporter/internal/logging"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// New returns a client with the given per-request timeout. When caCertFile
// is set its certificates are trusted in addition to the system roots.
func New(timeout time.Duration, caCertFile string, logger logging.Logger) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	if caCertFile == "" {
		return client, nil
	}

	pem, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate %s: %w", caCertFile, err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caCertFile)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	client.Transport = transport

	if logger != nil {
		logger.Debug("Using custom CA bundle", logging.F(logging.FieldFile, caCertFile))
	}
	return client, nil
}
