// Package crypto exposes the X25519 primitives used by murmur: key pair
// generation with RFC 7748 clamping, Diffie-Hellman, and short public-key
// fingerprints for display.
package crypto
