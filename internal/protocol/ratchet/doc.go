// Package ratchet implements the forward-secret symmetric ratchet.
//
// State is a plain record of counters and chain keys; "initialised", "n
// messages sent" and "rotated k times" are all just field values. Every
// chain step is a one-way KDF, so once the previous chain key is zeroed the
// message keys behind it cannot be recomputed. Out-of-order delivery is
// served by a bounded cache of skipped message keys; rotation re-derives a
// direction's chain from the root key under a fresh generation label.
//
// Concurrency: RatchetState is NOT safe for concurrent use. Callers must
// serialise access per peer relationship.
package ratchet
