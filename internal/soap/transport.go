package soap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout applies when TLSConfig.Timeout is zero
const DefaultTimeout = 60 * time.Second

// TLSConfig configures the HTTP client used to reach a service
type TLSConfig struct {
	// Certificate is presented when the server asks for a client certificate
	Certificate *tls.Certificate
	// RootCAs overrides the system roots (ARBA publishes its own CA)
	RootCAs            *x509.CertPool
	InsecureSkipVerify bool
	Timeout            time.Duration
	Proxy              string
}

// NewHTTPClient builds an HTTP client honoring cfg
func NewHTTPClient(cfg TLSConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		RootCAs:            cfg.RootCAs,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // homologation hosts only
	}
	if cfg.Certificate != nil {
		tlsConfig.Certificates = []tls.Certificate{*cfg.Certificate}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &requestIDTransport{base: transport},
	}, nil
}

// requestIDTransport wraps an http.RoundTripper to tag each request with an id
type requestIDTransport struct {
	base http.RoundTripper
}

// RequestIDHeader carries the per-call correlation id
const RequestIDHeader = "X-Request-Id"

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}
