package ratchet

import (
	"encoding/json"
	"fmt"

	"murmur/internal/domain"
)

// MarshalState serializes ratchet state into the opaque blob handed to the
// persistence collaborator. Collaborators must treat it as a black box; the
// only guarantee is that UnmarshalState round-trips it exactly.
func MarshalState(st *domain.RatchetState) ([]byte, error) {
	return json.Marshal(st)
}

// UnmarshalState restores state from a persisted blob.
func UnmarshalState(blob []byte) (domain.RatchetState, error) {
	var st domain.RatchetState
	if err := json.Unmarshal(blob, &st); err != nil {
		return domain.RatchetState{}, fmt.Errorf("decode ratchet state: %w", err)
	}
	if st.Skipped == nil {
		st.Skipped = make(map[uint64][]byte)
	}
	return st, nil
}
