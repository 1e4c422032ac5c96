package wsaa

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/hhrutter/pkcs7"

	"github.com/rezonia/afipws/internal/credential"
)

// DefaultTTL is half the validity window requested for a ticket. The
// request is stamped now-ttl..now+ttl to absorb clock skew.
const DefaultTTL = 2400 * time.Second

// TimeLayout is the ISO 8601 format WSAA uses, with numeric offset
const TimeLayout = "2006-01-02T15:04:05-07:00"

// CreateTRA builds the login ticket request for service
func CreateTRA(service string, ttl time.Duration, now time.Time) ([]byte, error) {
	if service == "" {
		return nil, fmt.Errorf("service is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(strconv.FormatInt(now.Unix(), 10))
	header.CreateElement("generationTime").SetText(now.Add(-ttl).Format(TimeLayout))
	header.CreateElement("expirationTime").SetText(now.Add(ttl).Format(TimeLayout))
	root.CreateElement("service").SetText(service)

	return doc.WriteToBytes()
}

// SignTRA wraps tra in a CMS SignedData (content attached) and returns it
// base64 encoded, ready for loginCms
func SignTRA(tra []byte, cred *credential.Credential) (string, error) {
	if cred == nil || cred.Certificate == nil || cred.PrivateKey == nil {
		return "", credential.ErrNoCertificate(nil)
	}

	signed, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return "", fmt.Errorf("failed to initialize signed data: %w", err)
	}
	signed.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := signed.AddSigner(cred.Certificate, cred.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return "", fmt.Errorf("failed to sign login ticket request: %w", err)
	}

	der, err := signed.Finish()
	if err != nil {
		return "", fmt.Errorf("failed to finish signed data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
