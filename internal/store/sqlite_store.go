package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"murmur/internal/domain"
)

// SQLiteStateStore persists per-peer ratchet state blobs in a SQLite
// database. Suitable when many peers make a single JSON file too coarse.
type SQLiteStateStore struct {
	db *sql.DB
}

// OpenSQLiteStateStore opens (or creates) the database at path and ensures
// the schema exists.
func OpenSQLiteStateStore(path string) (*SQLiteStateStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ratchet_state (
			peer    TEXT PRIMARY KEY,
			blob    BLOB NOT NULL,
			updated INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStateStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStateStore) Close() error { return s.db.Close() }

// StoreRatchetState upserts the blob for peer.
func (s *SQLiteStateStore) StoreRatchetState(peer string, blob []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO ratchet_state (peer, blob, updated) VALUES (?, ?, ?)
		ON CONFLICT(peer) DO UPDATE SET blob = excluded.blob, updated = excluded.updated`,
		peer, blob, time.Now().Unix())
	return err
}

// LoadRatchetState retrieves the blob for peer.
func (s *SQLiteStateStore) LoadRatchetState(peer string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM ratchet_state WHERE peer = ?`, peer).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

// DeleteRatchetState removes the blob for peer.
func (s *SQLiteStateStore) DeleteRatchetState(peer string) error {
	_, err := s.db.Exec(`DELETE FROM ratchet_state WHERE peer = ?`, peer)
	return err
}

// Compile-time assertion that SQLiteStateStore implements domain.StateStore.
var _ domain.StateStore = (*SQLiteStateStore)(nil)
