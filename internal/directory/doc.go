// Package directory resolves peer handles to public key bundles: over HTTP
// against a directory service (rate limited), or from a local contacts file.
package directory
