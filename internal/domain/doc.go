// Package domain defines the core types, error taxonomy and collaborator
// interfaces of the murmur session layer.
//
// The session layer owns key exchange, the forward-secret symmetric ratchet
// and the message cipher. Everything else (directory lookup, state
// persistence, wire transport) is an external collaborator reached through
// the narrow interfaces declared here.
package domain
