package domain

import "errors"

// Failure taxonomy for the session layer. All failures surface as typed
// results checkable with errors.Is; nothing is dropped silently.
var (
	// ErrInvalidKeyFormat indicates malformed key material. Fatal to the
	// call; retrying with the same input cannot succeed.
	ErrInvalidKeyFormat = errors.New("invalid key format")

	// ErrAuthenticationFailure indicates an AEAD tag mismatch: wrong key,
	// corrupted or tampered ciphertext. Never retried with the same
	// key and nonce.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrKeyNotAvailable indicates a skipped message key was already
	// consumed or evicted; the message is permanently undecryptable.
	ErrKeyNotAvailable = errors.New("message key not available")

	// ErrExcessiveGap indicates advancing the receiving chain would exceed
	// the skipped-key budget; possible attack or protocol desync.
	ErrExcessiveGap = errors.New("excessive message gap")

	// ErrSessionNotFound indicates no ratchet state exists for the peer.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPeerNotFound indicates the directory has no bundle for the handle.
	ErrPeerNotFound = errors.New("peer not found")
)
