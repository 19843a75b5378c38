// Package credential persists one API key per remote service.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Service names used as store keys.
const (
	ElevenLabs  = "elevenlabs"
	OpenAI      = "openai"
	HuggingFace = "huggingface"
	Novita      = "novita"
)

// Store reads and writes credentials. Get reports ok=false when nothing is
// stored for service.
type Store interface {
	Get(service string) (value string, ok bool, err error)
	Set(service, value string) error
	Delete(service string) error
}

// DefaultPath returns the credentials file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "genstudio", "credentials.json"), nil
}

// FileStore keeps credentials in a JSON object on disk, readable only by
// the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("credential: path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(service string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := all[normalize(service)]
	return v, ok && v != "", nil
}

// Set stores value for service. An empty value removes the entry.
func (s *FileStore) Set(service, value string) error {
	service = normalize(service)
	if service == "" {
		return errors.New("credential: service is required")
	}
	value = strings.TrimSpace(value)
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}
	if value == "" {
		delete(all, service)
	} else {
		all[service] = value
	}
	return s.save(all)
}

func (s *FileStore) Delete(service string) error {
	return s.Set(service, "")
}

func (s *FileStore) load() (map[string]string, error) {
	all := map[string]string{}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return all, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.path, err)
	}
	return all, nil
}

// save writes through a temp file so a crash never leaves a truncated file.
func (s *FileStore) save(all map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(service string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[normalize(service)]
	return v, ok, nil
}

func (m *MemoryStore) Set(service, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(value) == "" {
		delete(m.values, normalize(service))
		return nil
	}
	m.values[normalize(service)] = strings.TrimSpace(value)
	return nil
}

func (m *MemoryStore) Delete(service string) error {
	return m.Set(service, "")
}

func normalize(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

// Lookup returns the key for service. A non-empty override (from the
// environment) wins over the stored value.
func Lookup(store Store, service, override string) (string, error) {
	if v := strings.TrimSpace(override); v != "" {
		return v, nil
	}
	if store == nil {
		return "", nil
	}
	v, _, err := store.Get(service)
	return v, err
}
