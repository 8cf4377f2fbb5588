// Package rotation owns the re-key schedule: a wall-clock timer per peer, a
// message-count threshold checked on the send path, an on-demand emergency
// trigger, and a periodic sweep that bounds the skipped-key caches.
package rotation
