// Package store provides persistence for murmur's session layer.
//
// It contains concrete implementations of the domain storage interfaces:
//   - Ratchet state as opaque blobs, in a JSON file (FileStateStore) or a
//     SQLite database (SQLiteStateStore)
//   - The local identity key pair, encrypted at rest with a passphrase
//     (IdentityFileStore: scrypt + XChaCha20-Poly1305)
//
// All file writes go through a temp file and an atomic rename.
package store
