// Package document handles the PDF documents returned by the services
// (CTG constancias, settlement PDFs, registration certificates).
package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Info describes a validated PDF
type Info struct {
	Path  string `json:"path,omitempty"`
	Pages int    `json:"pages"`
	Size  int    `json:"size"`
}

func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate checks that data is a readable PDF and counts its pages
func Validate(data []byte) (*Info, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("not a PDF document")
	}
	conf := configuration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return &Info{Pages: pages, Size: len(data)}, nil
}

// SavePDF validates data and writes it to path, creating parent directories
func SavePDF(path string, data []byte) (*Info, error) {
	info, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	info.Path = path
	return info, nil
}

// DecodeBase64 decodes a PDF embedded in an XML response
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF: %w", err)
	}
	return data, nil
}
