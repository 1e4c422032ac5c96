package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rezonia/afipws/internal/trust"
)

// DefaultKeyBits is the RSA key size used for new taxpayer keys
const DefaultKeyBits = 2048

var oidSerialNumber = asn1.ObjectIdentifier{2, 5, 4, 5}

var cuitPattern = regexp.MustCompile(`CUIT\s*(\d{11})`)

// Credential is a taxpayer certificate with its private key, as issued by
// the AFIP certificate administration for a computer alias
type Credential struct {
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
	PrivateKey  crypto.Signer
}

// Load parses PEM encoded certificate (optionally followed by its chain) and key
func Load(certPEM, keyPEM []byte) (*Credential, error) {
	certs, err := parseCertificates(certPEM)
	if err != nil {
		return nil, ErrNoCertificate(err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, ErrNoKey(err)
	}

	cred := &Credential{
		Certificate: certs[0],
		Chain:       certs[1:],
		PrivateKey:  key,
	}
	if !cred.keyMatches() {
		return nil, ErrKeyMismatch()
	}
	return cred, nil
}

// LoadFiles reads certificate and key from disk
func LoadFiles(certPath, keyPath string) (*Credential, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return Load(certPEM, keyPEM)
}

// DecodeEnvPEM restores PEM text stored in a single-line environment
// variable with literal \n sequences
func DecodeEnvPEM(value string) []byte {
	return []byte(strings.ReplaceAll(value, `\n`, "\n"))
}

// TLSCertificate returns the pair for TLS client authentication
func (c *Credential) TLSCertificate() tls.Certificate {
	chain := [][]byte{c.Certificate.Raw}
	for _, cert := range c.Chain {
		chain = append(chain, cert.Raw)
	}
	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  c.PrivateKey,
		Leaf:        c.Certificate,
	}
}

// CUIT extracts the taxpayer id from the subject serialNumber ("CUIT nnnnnnnnnnn")
func (c *Credential) CUIT() (string, error) {
	return CUITFromCertificate(c.Certificate)
}

// Fingerprint identifies the certificate in ticket caches
func (c *Credential) Fingerprint() string {
	return trust.Fingerprint(c.Certificate)
}

// Expired reports whether the certificate is outside its validity window at t
func (c *Credential) Expired(t time.Time) bool {
	return t.Before(c.Certificate.NotBefore) || t.After(c.Certificate.NotAfter)
}

// CUITFromCertificate extracts the CUIT from a certificate subject
func CUITFromCertificate(cert *x509.Certificate) (string, error) {
	if cert == nil {
		return "", ErrNoCertificate(nil)
	}
	candidates := []string{cert.Subject.SerialNumber}
	for _, name := range cert.Subject.Names {
		if name.Type.Equal(oidSerialNumber) {
			if s, ok := name.Value.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}
	for _, s := range candidates {
		if m := cuitPattern.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}
	return "", NewCredentialError(ErrCodeNoCUIT, "subject", "serialNumber does not carry a CUIT", nil)
}

// GenerateKey creates a new RSA key and its PEM (PKCS#1) encoding
func GenerateKey(bits int) (*rsa.PrivateKey, []byte, error) {
	if bits == 0 {
		bits = DefaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, keyPEM, nil
}

// CreateCSR builds the certificate request AFIP expects: C=AR, O=company,
// CN=alias and serialNumber "CUIT <cuit>"
func CreateCSR(key crypto.Signer, cuit, company, alias string) ([]byte, error) {
	if len(cuit) != 11 {
		return nil, fmt.Errorf("invalid CUIT %q", cuit)
	}
	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			Country:      []string{"AR"},
			Organization: []string{company},
			CommonName:   alias,
			SerialNumber: "CUIT " + cuit,
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}
	if _, ok := key.Public().(*ecdsa.PublicKey); ok {
		template.SignatureAlgorithm = x509.ECDSAWithSHA256
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
		data = rest
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no CERTIFICATE block in PEM data")
	}
	return certs, nil
}

func parsePrivateKey(data []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no private key block in PEM data")
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			return x509.ParseECPrivateKey(block.Bytes)
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			signer, ok := key.(crypto.Signer)
			if !ok {
				return nil, fmt.Errorf("unsupported key type %T", key)
			}
			return signer, nil
		}
		data = rest
	}
}

func (c *Credential) keyMatches() bool {
	type equaler interface {
		Equal(x crypto.PublicKey) bool
	}
	pub, ok := c.PrivateKey.Public().(equaler)
	if !ok {
		return false
	}
	return pub.Equal(c.Certificate.PublicKey)
}
