package credential_test

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/credential"
	"github.com/rezonia/afipws/internal/credential/credentialtest"
	"github.com/rezonia/afipws/internal/trust"
)

func TestLoad(t *testing.T) {
	b := credentialtest.New(t, "20267565393", 24*time.Hour)

	cred, err := credential.Load(b.CertPEM, b.KeyPEM)
	require.NoError(t, err)

	cuit, err := cred.CUIT()
	require.NoError(t, err)
	assert.Equal(t, "20267565393", cuit)
	assert.Len(t, cred.Fingerprint(), 64)
	assert.False(t, cred.Expired(time.Now()))
	assert.True(t, cred.Expired(time.Now().Add(48*time.Hour)))

	tlsCert := cred.TLSCertificate()
	assert.Len(t, tlsCert.Certificate, 1)
	assert.Equal(t, cred.Certificate, tlsCert.Leaf)
}

func TestLoad_Errors(t *testing.T) {
	a := credentialtest.New(t, "20267565393", time.Hour)
	b := credentialtest.New(t, "30000000007", time.Hour)

	tests := []struct {
		name    string
		cert    []byte
		key     []byte
		errCode string
	}{
		{"no certificate", []byte("garbage"), a.KeyPEM, credential.ErrCodeNoCertificate},
		{"no key", a.CertPEM, []byte("garbage"), credential.ErrCodeNoKey},
		{"mismatch", a.CertPEM, b.KeyPEM, credential.ErrCodeKeyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := credential.Load(tt.cert, tt.key)
			var credErr *credential.CredentialError
			require.True(t, errors.As(err, &credErr))
			assert.Equal(t, tt.errCode, credErr.Code)
		})
	}
}

func TestLoadFiles_EnvStyleKey(t *testing.T) {
	b := credentialtest.New(t, "20267565393", time.Hour)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "reingart.crt")
	keyPath := filepath.Join(dir, "reingart.key")

	flat := strings.ReplaceAll(string(b.KeyPEM), "\n", `\n`)
	require.NoError(t, os.WriteFile(certPath, b.CertPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, credential.DecodeEnvPEM(flat), 0o600))

	cred, err := credential.LoadFiles(certPath, keyPath)
	require.NoError(t, err)
	assert.NotNil(t, cred.PrivateKey)

	_, err = credential.LoadFiles(filepath.Join(dir, "missing.crt"), keyPath)
	assert.Error(t, err)
}

func TestCreateCSR(t *testing.T) {
	key, keyPEM, err := credential.GenerateKey(1024)
	require.NoError(t, err)
	assert.Contains(t, string(keyPEM), "RSA PRIVATE KEY")

	csrPEM, err := credential.CreateCSR(key, "20267565393", "Empresa de Prueba", "facturacion")
	require.NoError(t, err)

	block, _ := pem.Decode(csrPEM)
	require.NotNil(t, block)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())

	assert.Equal(t, "CUIT 20267565393", csr.Subject.SerialNumber)
	assert.Equal(t, "facturacion", csr.Subject.CommonName)
	assert.Equal(t, []string{"AR"}, csr.Subject.Country)

	_, err = credential.CreateCSR(key, "123", "x", "y")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	b := credentialtest.New(t, "20267565393", 10*24*time.Hour)

	store := trust.NewEmptyTrustStore()
	store.AddCertificate(b.CA)

	report := credential.Inspect(context.Background(), b.Credential, store, time.Now())
	assert.True(t, report.Valid, "errors: %v", report.Errors)
	assert.True(t, report.ChainValid)
	assert.Equal(t, "20267565393", report.CUIT)
	assert.Equal(t, trust.StatusUnchecked, report.Revocation)
	require.NotNil(t, report.Subject)
	assert.Equal(t, "Computadores Test", report.Subject.Issuer)
	assert.NotEmpty(t, report.Warnings, "expiry within 30 days should warn")
}

func TestInspect_Failures(t *testing.T) {
	b := credentialtest.New(t, "20267565393", time.Hour)

	untrusted := credential.Inspect(context.Background(), b.Credential, trust.NewEmptyTrustStore(), time.Now())
	assert.False(t, untrusted.Valid)
	assert.False(t, untrusted.ChainValid)

	expired := credential.Inspect(context.Background(), b.Credential, nil, time.Now().Add(2*time.Hour))
	assert.False(t, expired.Valid)
	assert.False(t, expired.WithinValidity)

	missing := credential.Inspect(context.Background(), nil, nil, time.Now())
	assert.False(t, missing.Valid)
	assert.NotEmpty(t, missing.Errors)
}
