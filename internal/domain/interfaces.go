package domain

import "context"

// Directory resolves a peer handle to its public key bundle. Implemented by
// the excluded directory subsystem; the core never caches bundles beyond the
// duration of a key exchange.
type Directory interface {
	FetchPeerBundle(ctx context.Context, handle string) (PeerKeyBundle, error)
}

// StateStore persists serialized ratchet state per peer as an opaque blob.
type StateStore interface {
	LoadRatchetState(peer string) ([]byte, bool, error)
	StoreRatchetState(peer string, blob []byte) error
	DeleteRatchetState(peer string) error
}

// IdentityStore persists the local long-term key pair, encrypted at rest.
type IdentityStore interface {
	SaveIdentity(passphrase string, kp KeyPair) error
	LoadIdentity(passphrase string) (KeyPair, error)
}
