package credential

import "fmt"

// Error codes for credential loading and inspection
const (
	ErrCodeNoCertificate   = "NO_CERTIFICATE"
	ErrCodeNoKey           = "NO_KEY"
	ErrCodeKeyMismatch     = "KEY_MISMATCH"
	ErrCodeNoCUIT          = "NO_CUIT"
	ErrCodeCertExpired     = "CERT_EXPIRED"
	ErrCodeCertNotYetValid = "CERT_NOT_YET_VALID"
	ErrCodeCertRevoked     = "CERT_REVOKED"
	ErrCodeChainInvalid    = "CHAIN_INVALID"
	ErrCodeOCSPUnavailable = "OCSP_UNAVAILABLE"
)

// CredentialError represents a problem with the taxpayer certificate or key
type CredentialError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *CredentialError) Error() string {
	if e.Field != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// NewCredentialError creates a new credential error
func NewCredentialError(code, field, message string, cause error) *CredentialError {
	return &CredentialError{
		Code:    code,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ErrNoCertificate returns error when no certificate block is found
func ErrNoCertificate(cause error) *CredentialError {
	return NewCredentialError(ErrCodeNoCertificate, "certificate", "no certificate found", cause)
}

// ErrNoKey returns error when the private key cannot be decoded
func ErrNoKey(cause error) *CredentialError {
	return NewCredentialError(ErrCodeNoKey, "private_key", "no usable private key found", cause)
}

// ErrKeyMismatch returns error when the key does not belong to the certificate
func ErrKeyMismatch() *CredentialError {
	return NewCredentialError(ErrCodeKeyMismatch, "private_key", "private key does not match certificate", nil)
}

// ErrCertExpired returns error when certificate has expired
func ErrCertExpired(subject string) *CredentialError {
	return NewCredentialError(ErrCodeCertExpired, "certificate", fmt.Sprintf("certificate expired: %s", subject), nil)
}

// ErrCertNotYetValid returns error when certificate is not yet valid
func ErrCertNotYetValid(subject string) *CredentialError {
	return NewCredentialError(ErrCodeCertNotYetValid, "certificate", fmt.Sprintf("certificate not yet valid: %s", subject), nil)
}
