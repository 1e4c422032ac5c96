package credential

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/rezonia/afipws/internal/trust"
)

// ExpiryWarning is how close to NotAfter a certificate starts producing warnings
const ExpiryWarning = 30 * 24 * time.Hour

// Report is the outcome of inspecting a credential
type Report struct {
	// Overall validity - true only if all checks pass
	Valid bool `json:"valid"`

	WithinValidity bool                   `json:"within_validity"`
	ChainValid     bool                   `json:"chain_valid"`
	Revocation     trust.RevocationStatus `json:"revocation"`

	Subject *SubjectInfo `json:"subject,omitempty"`
	CUIT    string       `json:"cuit,omitempty"`

	// Certificate chain (not serialized to JSON)
	CertChain []*x509.Certificate `json:"-"`

	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// SubjectInfo contains certificate subject information
type SubjectInfo struct {
	Name         string    `json:"name"`
	Organization string    `json:"organization,omitempty"`
	SerialNumber string    `json:"serial_number"`
	Issuer       string    `json:"issuer"`
	Fingerprint  string    `json:"fingerprint"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
}

// NewReport creates a new empty report
func NewReport() *Report {
	return &Report{
		Revocation: trust.StatusUnchecked,
		Warnings:   make([]string, 0),
		Errors:     make([]string, 0),
	}
}

// AddWarning adds a warning message to the report
func (r *Report) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddError adds an error message and sets Valid to false
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// SetSubject populates SubjectInfo from a certificate
func (r *Report) SetSubject(cert *x509.Certificate) {
	if cert == nil {
		return
	}

	subject := &SubjectInfo{
		Name:         cert.Subject.CommonName,
		SerialNumber: cert.Subject.SerialNumber,
		Fingerprint:  trust.Fingerprint(cert),
		ValidFrom:    cert.NotBefore,
		ValidTo:      cert.NotAfter,
	}
	if len(cert.Subject.Organization) > 0 {
		subject.Organization = cert.Subject.Organization[0]
	}
	if cert.Issuer.CommonName != "" {
		subject.Issuer = cert.Issuer.CommonName
	} else if len(cert.Issuer.Organization) > 0 {
		subject.Issuer = cert.Issuer.Organization[0]
	}

	r.Subject = subject
}

// ComputeValidity sets Valid from the individual checks. An unchecked
// revocation status does not invalidate the report.
func (r *Report) ComputeValidity() {
	r.Valid = r.WithinValidity &&
		r.ChainValid &&
		r.Revocation != trust.StatusRevoked &&
		len(r.Errors) == 0
}

// Inspect checks validity window, chain and revocation of cred at now.
// A nil store skips chain and revocation checks.
func Inspect(ctx context.Context, cred *Credential, store *trust.TrustStore, now time.Time) *Report {
	report := NewReport()
	if cred == nil || cred.Certificate == nil {
		report.AddError(ErrNoCertificate(nil).Error())
		return report
	}
	cert := cred.Certificate
	report.SetSubject(cert)

	if cuit, err := cred.CUIT(); err != nil {
		report.AddWarning(err.Error())
	} else {
		report.CUIT = cuit
	}

	switch {
	case now.Before(cert.NotBefore):
		report.AddError(ErrCertNotYetValid(cert.Subject.CommonName).Error())
	case now.After(cert.NotAfter):
		report.AddError(ErrCertExpired(cert.Subject.CommonName).Error())
	default:
		report.WithinValidity = true
		if left := cert.NotAfter.Sub(now); left < ExpiryWarning {
			report.AddWarning(fmt.Sprintf("certificate expires in %d days", int(left.Hours()/24)))
		}
	}

	if store == nil {
		report.ChainValid = true
		report.AddWarning("chain not verified: no trust store")
		report.ComputeValidity()
		return report
	}

	chain, err := store.VerifyChain(cert, cred.Chain, now)
	if err != nil {
		report.AddError(NewCredentialError(ErrCodeChainInvalid, "certificate", "chain verification failed", err).Error())
		report.ComputeValidity()
		return report
	}
	report.ChainValid = true
	report.CertChain = chain

	if len(chain) > 1 {
		status, err := store.CheckRevocation(ctx, cert, chain[1])
		if err != nil {
			report.AddWarning(NewCredentialError(ErrCodeOCSPUnavailable, "certificate", "revocation check failed", err).Error())
		}
		report.Revocation = status
		if status == trust.StatusRevoked {
			report.AddError(NewCredentialError(ErrCodeCertRevoked, "certificate", "certificate revoked", nil).Error())
		}
	}

	report.ComputeValidity()
	return report
}
