package app

import (
	"fmt"
	"path/filepath"

	"murmur/internal/directory"
	"murmur/internal/domain"
	"murmur/internal/store"
)

// Wire bundles the stores and collaborators the CLI hands to the session
// manager.
type Wire struct {
	Identity domain.IdentityStore
	States   domain.StateStore
	Dir      domain.Directory
	Contacts *directory.Local // non-nil only when Dir is the local directory

	closeState func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	w := &Wire{
		Identity: store.NewIdentityFileStore(cfg.Home),
	}

	switch cfg.StateBackend {
	case "", "file":
		w.States = store.NewFileStateStore(cfg.Home)
	case "sqlite":
		db, err := store.OpenSQLiteStateStore(filepath.Join(cfg.Home, "sessions.db"))
		if err != nil {
			return nil, err
		}
		w.States = db
		w.closeState = db.Close
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}

	if cfg.DirectoryURL != "" {
		w.Dir = directory.NewHTTP(cfg.DirectoryURL, cfg.HTTP, 0)
	} else {
		local := directory.NewLocal(cfg.Home)
		w.Dir = local
		w.Contacts = local
	}
	return w, nil
}

// Close releases backend resources.
func (w *Wire) Close() error {
	if w.closeState != nil {
		return w.closeState()
	}
	return nil
}
