package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"murmur/internal/domain"
)

const identityFilename = "identity.json.enc"

// IdentityFileStore persists the local long-term key pair to disk, encrypted
// under a passphrase.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

// identityJSON is the plaintext layout inside the encrypted envelope.
type identityJSON struct {
	Public  []byte `json:"public"`
	Private []byte `json:"private"`
}

// SaveIdentity writes the encrypted key pair to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, kp domain.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(identityJSON{
		Public:  kp.Public.Slice(),
		Private: kp.Private.Slice(),
	})
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	ct, err := encrypt(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, identityFilename), ct, 0o600)
}

// LoadIdentity reads and decrypts the key pair.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, identityFilename))
	if err != nil {
		return domain.KeyPair{}, err
	}
	if b == nil {
		return domain.KeyPair{}, fmt.Errorf("no identity found; run init first")
	}
	raw, err := decrypt(passphrase, b)
	if err != nil {
		return domain.KeyPair{}, err
	}
	var id identityJSON
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.KeyPair{}, err
	}
	if len(id.Public) != 32 || len(id.Private) != 32 {
		return domain.KeyPair{}, domain.ErrInvalidKeyFormat
	}
	var kp domain.KeyPair
	copy(kp.Public[:], id.Public)
	copy(kp.Private[:], id.Private)
	return kp, nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
