// Package session orchestrates per-peer encrypted conversations.
//
// A Manager owns one Coordinator per peer plus the rotation scheduler. Each
// Coordinator serialises all operations on its ratchet state behind a single
// mutex; scheduled rotations take the same lock, so a timer firing can never
// interleave with an in-flight send. Sessions establish lazily: the first
// send or receive fetches the peer's bundle, runs the key exchange and
// initialises the ratchet.
package session
