package wsaa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists access tickets between runs. Load returns nil, nil when
// no ticket is stored under key.
type Store interface {
	Load(ctx context.Context, key string) (*Ticket, error)
	Save(ctx context.Context, key string, t *Ticket) error
	Delete(ctx context.Context, key string) error
}

// CacheKey identifies a ticket by service and certificate
func CacheKey(service, fingerprint string) string {
	sum := sha256.Sum256([]byte(service + "|" + fingerprint))
	return service + "-" + hex.EncodeToString(sum[:8])
}

// MemoryStore keeps tickets for the life of the process
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*Ticket)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickets[key], nil
}

func (s *MemoryStore) Save(_ context.Context, key string, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[key] = t
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, key)
	return nil
}

// FileStore writes each ticket's loginTicketResponse XML under a directory
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ticket cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, "TA-"+key+".xml")
}

func (s *FileStore) Load(_ context.Context, key string) (*Ticket, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached ticket: %w", err)
	}
	return ParseTicket(data)
}

func (s *FileStore) Save(_ context.Context, key string, t *Ticket) error {
	if t.XML == "" {
		return fmt.Errorf("ticket has no XML to cache")
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(t.XML), 0o600); err != nil {
		return fmt.Errorf("failed to write cached ticket: %w", err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to store cached ticket: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cached ticket: %w", err)
	}
	return nil
}
