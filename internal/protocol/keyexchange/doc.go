// Package keyexchange establishes a pair of directional session keys between
// two long-term X25519 identities.
//
// The construction follows the libsodium crypto_kx shape: an X25519 shared
// secret is hashed with BLAKE2b-512 together with both public keys in a
// fixed CLIENT-then-SERVER order, and each side takes opposite halves of the
// output. Role assignment is deterministic (lexicographic comparison of the
// public keys), so no handshake round trip is needed.
package keyexchange
