package trust

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"time"
)

// RevocationStatus is the outcome of a revocation check
type RevocationStatus string

const (
	StatusGood    RevocationStatus = "good"
	StatusRevoked RevocationStatus = "revoked"
	// StatusUnchecked means no responder was listed or soft-fail swallowed an error
	StatusUnchecked RevocationStatus = "unchecked"
)

// TrustStore holds the CA pool used to reach the services and to check the
// taxpayer's own certificate
type TrustStore struct {
	roots       *x509.CertPool
	rootCerts   []*x509.Certificate
	ocspCache   *OCSPCache
	ocspTimeout time.Duration
	ocspClient  *http.Client
	softFail    bool
	loadErrs    []error
}

// TrustStoreOption configures a TrustStore
type TrustStoreOption func(*TrustStore)

// NewTrustStore starts from the system roots
func NewTrustStore(opts ...TrustStoreOption) (*TrustStore, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system roots: %w", err)
	}

	store := newStore(roots, opts)
	if len(store.loadErrs) > 0 {
		return nil, store.loadErrs[0]
	}
	return store, nil
}

// NewEmptyTrustStore creates a trust store without system roots
func NewEmptyTrustStore(opts ...TrustStoreOption) *TrustStore {
	return newStore(x509.NewCertPool(), opts)
}

func newStore(roots *x509.CertPool, opts []TrustStoreOption) *TrustStore {
	store := &TrustStore{
		roots:       roots,
		rootCerts:   make([]*x509.Certificate, 0),
		ocspCache:   NewOCSPCache(DefaultOCSPCacheTTL),
		ocspTimeout: DefaultOCSPTimeout,
		ocspClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// WithSoftFail makes OCSP transport failures report StatusUnchecked
func WithSoftFail() TrustStoreOption {
	return func(s *TrustStore) {
		s.softFail = true
	}
}

// WithOCSPTimeout sets the timeout for OCSP requests
func WithOCSPTimeout(d time.Duration) TrustStoreOption {
	return func(s *TrustStore) {
		s.ocspTimeout = d
	}
}

// WithOCSPCacheTTL sets the TTL for OCSP cache entries
func WithOCSPCacheTTL(d time.Duration) TrustStoreOption {
	return func(s *TrustStore) {
		s.ocspCache = NewOCSPCache(d)
	}
}

// WithOCSPClient sets the HTTP client used to reach OCSP responders
func WithOCSPClient(c *http.Client) TrustStoreOption {
	return func(s *TrustStore) {
		s.ocspClient = c
	}
}

// WithCAFile adds the certificates of a PEM bundle (e.g. ARBA's arba.crt).
// NewTrustStore reports unreadable files.
func WithCAFile(path string) TrustStoreOption {
	return func(s *TrustStore) {
		data, err := os.ReadFile(path)
		if err != nil {
			s.loadErrs = append(s.loadErrs, fmt.Errorf("failed to read CA file %s: %w", path, err))
			return
		}
		if err := s.AddCertificatesFromPEM(data); err != nil {
			s.loadErrs = append(s.loadErrs, fmt.Errorf("failed to load CA file %s: %w", path, err))
		}
	}
}

// AddCertificate adds a single certificate to the trust store
func (s *TrustStore) AddCertificate(cert *x509.Certificate) {
	if cert != nil {
		s.roots.AddCert(cert)
		s.rootCerts = append(s.rootCerts, cert)
	}
}

// AddCertificatesFromPEM parses and adds certificates from PEM data
func (s *TrustStore) AddCertificatesFromPEM(pemData []byte) error {
	var added int
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			s.AddCertificate(cert)
			added++
		}
		pemData = rest
	}
	if added == 0 {
		return fmt.Errorf("no certificates found in PEM data")
	}
	return nil
}

// VerifyChain verifies cert against the trusted roots at time at
func (s *TrustStore) VerifyChain(cert *x509.Certificate, intermediates []*x509.Certificate, at time.Time) ([]*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var interPool *x509.CertPool
	if len(intermediates) > 0 {
		interPool = x509.NewCertPool()
		for _, inter := range intermediates {
			interPool.AddCert(inter)
		}
	}

	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: interPool,
		CurrentTime:   at,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no valid certificate chains found")
	}
	return chains[0], nil
}

// CheckRevocation asks the certificate's OCSP responders about cert
func (s *TrustStore) CheckRevocation(ctx context.Context, cert, issuer *x509.Certificate) (RevocationStatus, error) {
	if cert == nil || issuer == nil {
		return StatusUnchecked, fmt.Errorf("certificate or issuer is nil")
	}

	if status, found := s.ocspCache.Get(cert); found {
		return status, nil
	}

	if len(cert.OCSPServer) == 0 {
		return StatusUnchecked, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.ocspTimeout)
	defer cancel()

	revoked, err := CheckOCSP(ctx, s.ocspClient, cert, issuer)
	if err != nil {
		if s.softFail {
			return StatusUnchecked, nil
		}
		return StatusUnchecked, fmt.Errorf("OCSP check failed: %w", err)
	}

	status := StatusGood
	if revoked {
		status = StatusRevoked
	}
	s.ocspCache.Set(cert, status)
	return status, nil
}

// Roots returns the certificate pool, suitable for tls.Config.RootCAs
func (s *TrustStore) Roots() *x509.CertPool {
	return s.roots
}

// RootCerts returns the certificates added explicitly
func (s *TrustStore) RootCerts() []*x509.Certificate {
	return s.rootCerts
}

// IsSoftFail returns whether soft-fail mode is enabled
func (s *TrustStore) IsSoftFail() bool {
	return s.softFail
}
