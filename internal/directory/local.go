package directory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"murmur/internal/domain"
)

const contactsFilename = "contacts.json"

// Local resolves handles from a contacts file on disk instead of a remote
// service. Useful offline and for the CLI, where peers exchange public keys
// out of band.
type Local struct {
	dir string
	mu  sync.Mutex
}

// NewLocal returns a Local directory rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// AddPeer records a handle's public key, given base64.
func (l *Local) AddPeer(handle, pubB64 string) error {
	raw, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: want 32 base64 bytes", domain.ErrInvalidKeyFormat)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.read()
	if err != nil {
		return err
	}
	m[handle] = raw
	return l.write(m)
}

// FetchPeerBundle implements domain.Directory.
func (l *Local) FetchPeerBundle(_ context.Context, handle string) (domain.PeerKeyBundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.read()
	if err != nil {
		return domain.PeerKeyBundle{}, err
	}
	raw, ok := m[handle]
	if !ok {
		return domain.PeerKeyBundle{}, fmt.Errorf("%w: %s", domain.ErrPeerNotFound, handle)
	}
	if len(raw) != 32 {
		return domain.PeerKeyBundle{}, domain.ErrInvalidKeyFormat
	}
	var b domain.PeerKeyBundle
	copy(b.IdentityKey[:], raw)
	return b, nil
}

func (l *Local) read() (map[string][]byte, error) {
	m := map[string][]byte{}
	b, err := os.ReadFile(filepath.Join(l.dir, contactsFilename))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	return m, json.Unmarshal(b, &m)
}

func (l *Local) write(m map[string][]byte) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(l.dir, contactsFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Compile-time assertion that Local implements domain.Directory.
var _ domain.Directory = (*Local)(nil)
