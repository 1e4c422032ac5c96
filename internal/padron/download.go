package padron

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rezonia/afipws/internal/soap"
)

// Descargar fetches the registry archive at url into path. When path
// already exists its modification time is sent as If-Modified-Since and
// http.StatusNotModified is returned if the server has nothing newer.
func Descargar(ctx context.Context, client soap.Doer, url, path string) (int, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}
	if st, err := os.Stat(path); err == nil {
		req.Header.Set("If-Modified-Since", st.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return resp.StatusCode, nil
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &soap.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to save %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to save %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", path, err)
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		_ = os.Chtimes(path, lm, lm)
	}
	return resp.StatusCode, nil
}

// Procesar loads the registry file at path into the store. path is either
// the published ZIP (every .txt member is streamed) or an extracted text file.
func (s *Store) Procesar(ctx context.Context, path string, replace bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(zipMagic))
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if string(magic[:n]) != zipMagic {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return s.Import(ctx, f, replace)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer zr.Close()

	total := 0
	for _, member := range zr.File {
		if member.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(member.Name), ".txt") {
			continue
		}
		n, err := s.importMember(ctx, member, replace)
		if err != nil {
			return total, err
		}
		replace = false
		total += n
	}
	return total, nil
}

const zipMagic = "PK\x03\x04"

func (s *Store) importMember(ctx context.Context, member *zip.File, replace bool) (int, error) {
	rc, err := member.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", member.Name, err)
	}
	defer rc.Close()

	n, err := s.Import(ctx, rc, replace)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", member.Name, err)
	}
	return n, nil
}
