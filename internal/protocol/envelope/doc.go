// Package envelope is the authenticated-encryption wrapper around a single
// message: XChaCha20-Poly1305 with a fresh 24-byte random nonce per seal.
//
// The wire shape is an explicitly tagged envelope: ratcheted packets carry
// their chain position, static fallback packets never do, and the mode tag
// plus position fields are bound as associated data so any change makes the
// open fail rather than return corrupted plaintext.
package envelope
