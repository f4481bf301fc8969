package tokenstore

// Package tokenstore provides local TokenStore adapters: a durable file-backed
// store for the CLI and portal, and an in-memory store for tests.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
)

// DefaultKey is the well-known key the credential is stored under.
const DefaultKey = "access_token"

// FileConfig configures a FileStore.
type FileConfig struct {
	// Path of the JSON document. Empty means <UserConfigDir>/felix/session.json.
	Path string
	// Key is the entry holding the credential. Empty means DefaultKey.
	Key string
	// Sealer protects the value at rest. Nil means PlainSealer.
	Sealer Sealer
}

// FileStore keeps the credential in a small JSON key-value document on disk.
// Entries under other keys are preserved on write.
type FileStore struct {
	path   string
	key    string
	sealer Sealer
	mu     sync.Mutex
}

// NewFileStore creates a FileStore. The file itself is created lazily on first Set.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	path := cfg.Path
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		path = filepath.Join(dir, "felix", "session.json")
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	var sealer Sealer = PlainSealer{}
	if cfg.Sealer != nil {
		sealer = cfg.Sealer
	}
	return &FileStore{path: path, key: key, sealer: sealer}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context) (domainauth.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", false
	}
	sealed, ok := doc[s.key]
	if !ok || sealed == "" {
		return "", false
	}
	raw, err := s.sealer.Open(sealed)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return domainauth.Credential(raw), true
}

func (s *FileStore) Set(_ context.Context, cred domainauth.Credential) error {
	if cred.IsZero() {
		return errors.New("credential cannot be empty")
	}
	sealed, err := s.sealer.Seal([]byte(cred))
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// An unreadable document is replaced rather than blocking login.
		doc = map[string]string{}
	}
	doc[s.key] = sealed
	return s.write(doc)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		doc = map[string]string{}
	}
	if _, ok := doc[s.key]; !ok && len(doc) > 0 {
		return nil
	}
	delete(doc, s.key)
	if len(doc) == 0 {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", rmErr)
		}
		return nil
	}
	return s.write(doc)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc := map[string]string{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file in the same directory.
func (s *FileStore) write(doc map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
