// Package commands defines the murmur CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Create the local identity
//   - fingerprint  Print the identity fingerprint
//   - contact      Add a peer's public key to the contacts file
//   - send         Encrypt a message; the packet prints to stdout as JSON
//   - recv         Decrypt a packet read from stdin
//   - rotate       Re-key a session, optionally as an emergency
//
// # Implementation
//
// The root command builds the stores and directory client before any
// subcommand runs; commands that touch sessions construct a session manager
// on top of them after loading the identity. Transport is deliberately
// absent: packets travel via stdout/stdin so any delivery mechanism works.
package commands
