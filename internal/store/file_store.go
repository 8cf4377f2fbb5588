package store

import (
	"path/filepath"
	"sync"

	"murmur/internal/domain"
)

const stateFilename = "sessions.json"

// FileStateStore persists per-peer ratchet state blobs in a single JSON file
// under dir. Writes are atomic (temp file then rename).
type FileStateStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStateStore returns a FileStateStore rooted at dir.
func NewFileStateStore(dir string) *FileStateStore {
	return &FileStateStore{dir: dir}
}

// StoreRatchetState writes the opaque blob for peer.
func (s *FileStateStore) StoreRatchetState(peer string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, stateFilename)
	m := map[string][]byte{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	m[peer] = blob
	return writeJSON(path, m, 0o600)
}

// LoadRatchetState retrieves the blob for peer.
func (s *FileStateStore) LoadRatchetState(peer string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, stateFilename)
	m := map[string][]byte{}
	if err := readJSON(path, &m); err != nil {
		return nil, false, err
	}
	blob, ok := m[peer]
	return blob, ok, nil
}

// DeleteRatchetState removes the blob for peer. Missing entries are fine.
func (s *FileStateStore) DeleteRatchetState(peer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, stateFilename)
	m := map[string][]byte{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	if _, ok := m[peer]; !ok {
		return nil
	}
	delete(m, peer)
	return writeJSON(path, m, 0o600)
}

// Compile-time assertion that FileStateStore implements domain.StateStore.
var _ domain.StateStore = (*FileStateStore)(nil)
