package app

import (
	"net/http"

	"murmur/internal/rotation"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string       // config directory, e.g. $HOME/.murmur
	DirectoryURL string       // directory base URL; empty means local contacts
	StateBackend string       // "file" (default) or "sqlite"
	Rotation     rotation.Config
	HTTP         *http.Client // optional; defaults to http.DefaultClient
}
