package ratchet

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"murmur/internal/domain"
	"murmur/internal/util/memzero"
)

const (
	keySize = 32

	// DefaultMaxSkipped bounds the skipped-key cache. Messages skipped
	// beyond this window become permanently undecryptable; tune it to the
	// transport's maximum expected reordering.
	DefaultMaxSkipped = 50
)

// HKDF labels for domain separation.
const (
	labelInit = "murmur/ratchet-init"
	labelStep = "murmur/chain-step"
)

var errChainUninitialised = errors.New("ratchet chain key is uninitialised")

// Initialize builds fresh ratchet state from the session keys, consuming and
// zeroing them.
//
// The two directional keys are concatenated in role order (CLIENT appends
// tx then rx, SERVER rx then tx) so both ends hash an identical 64-byte
// buffer into the session seed. The seed expands into a root key plus one
// base chain key per direction; each side then takes its own direction as
// the sending chain and the peer's as the receiving chain. This mirroring is
// what makes A's sending chain derive B's receiving keys at every index.
func Initialize(keys *domain.SessionKeys) (domain.RatchetState, error) {
	if len(keys.TX) != keySize || len(keys.RX) != keySize {
		return domain.RatchetState{}, fmt.Errorf("%w: session key length", domain.ErrInvalidKeyFormat)
	}

	combined := make([]byte, 0, 2*keySize)
	if keys.Role == domain.RoleClient {
		combined = append(combined, keys.TX...)
		combined = append(combined, keys.RX...)
	} else {
		combined = append(combined, keys.RX...)
		combined = append(combined, keys.TX...)
	}
	seed := sha256.Sum256(combined)

	r := hkdf.New(sha256.New, seed[:], nil, []byte(labelInit))
	rootKey := make([]byte, keySize)
	clientChain := make([]byte, keySize)
	serverChain := make([]byte, keySize)
	if _, err := io.ReadFull(r, rootKey); err != nil {
		return domain.RatchetState{}, err
	}
	if _, err := io.ReadFull(r, clientChain); err != nil {
		return domain.RatchetState{}, err
	}
	if _, err := io.ReadFull(r, serverChain); err != nil {
		return domain.RatchetState{}, err
	}

	st := domain.RatchetState{
		Role:     keys.Role,
		RootKey:  rootKey,
		Skipped:  make(map[uint64][]byte),
		StaticTX: append([]byte(nil), keys.TX...),
		StaticRX: append([]byte(nil), keys.RX...),
	}
	if keys.Role == domain.RoleClient {
		st.SendChainKey, st.RecvChainKey = clientChain, serverChain
	} else {
		st.SendChainKey, st.RecvChainKey = serverChain, clientChain
	}

	memzero.ZeroAll(combined, seed[:], keys.TX, keys.RX)
	keys.TX, keys.RX = nil, nil
	return st, nil
}

// deriveMessageKey is a one-way chain step: the returned message key cannot
// be recomputed once the chain key it came from is replaced and zeroed.
func deriveMessageKey(ck []byte) (mk, nextCK []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte(labelStep))
	nextCK = make([]byte, keySize)
	mk = make([]byte, keySize)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return mk, nextCK
}

// chainKeyAt derives the chain key for one direction of generation gen from
// the root key. Both ends can compute it independently, which is how a
// receiver re-keys when it observes the peer's rotation.
func chainKeyAt(rootKey []byte, dir domain.Role, gen uint32) []byte {
	info := fmt.Sprintf("murmur/rotate|%s|%d", dir, gen)
	r := hkdf.New(sha256.New, rootKey, nil, []byte(info))
	ck := make([]byte, keySize)
	_, _ = io.ReadFull(r, ck)
	return ck
}

// AdvanceSendingChain derives the next one-time message key, replaces the
// sending chain key and increments the send counter. The caller must read
// the message number from the state before calling.
func AdvanceSendingChain(st *domain.RatchetState) ([]byte, error) {
	if len(st.SendChainKey) == 0 {
		return nil, errChainUninitialised
	}
	mk, next := deriveMessageKey(st.SendChainKey)
	memzero.Zero(st.SendChainKey)
	st.SendChainKey = next
	st.SendMsgNum++
	return mk, nil
}

// AdvanceReceivingChain returns the message key for a packet at position
// (gen, n) whose header reports prevLen messages in the sender's prior
// generation.
//
//   - A newer generation first drains the current chain into the skipped
//     cache up to prevLen, then re-keys the receiving chain at gen.
//   - An older generation is served from the skipped cache only.
//   - Within the current generation, n ahead of the counter derives and
//     caches the intermediate keys; n behind it consumes a cached key.
//
// Returned keys are single-use; cached entries are deleted on consumption.
func AdvanceReceivingChain(st *domain.RatchetState, gen, n, prevLen uint32, maxSkipped int) ([]byte, error) {
	if maxSkipped <= 0 {
		maxSkipped = DefaultMaxSkipped
	}

	switch {
	case gen > st.RecvGeneration:
		if err := skipTo(st, prevLen, maxSkipped); err != nil {
			return nil, err
		}
		memzero.Zero(st.RecvChainKey)
		st.RecvChainKey = chainKeyAt(st.RootKey, st.Role.Opposite(), gen)
		st.RecvGeneration = gen
		st.RecvMsgNum = 0
	case gen < st.RecvGeneration:
		return takeSkipped(st, gen, n)
	}

	if n < st.RecvMsgNum {
		return takeSkipped(st, gen, n)
	}
	if err := skipTo(st, n, maxSkipped); err != nil {
		return nil, err
	}
	if len(st.RecvChainKey) == 0 {
		return nil, errChainUninitialised
	}
	mk, next := deriveMessageKey(st.RecvChainKey)
	memzero.Zero(st.RecvChainKey)
	st.RecvChainKey = next
	st.RecvMsgNum = n + 1
	return mk, nil
}

// Rotate re-keys the sending direction: it records the outgoing chain's
// length, bumps the generation and re-derives the sending chain key from the
// current root key. The peer re-keys its receiving side when it first sees a
// packet from the new generation, so no coordination message is needed.
func Rotate(st *domain.RatchetState) {
	st.PrevSendChainLen = st.SendMsgNum
	st.SendGeneration++
	memzero.Zero(st.SendChainKey)
	st.SendChainKey = chainKeyAt(st.RootKey, st.Role, st.SendGeneration)
	st.SendMsgNum = 0
}

// CleanupOldKeys evicts skipped entries, oldest first, until the cache holds
// at most maxSkipped keys. Evicted messages are permanently undecryptable.
func CleanupOldKeys(st *domain.RatchetState, maxSkipped int) {
	if maxSkipped <= 0 {
		maxSkipped = DefaultMaxSkipped
	}
	for len(st.Skipped) > maxSkipped {
		evictOldest(st)
	}
}

// CloneState returns a deep copy of st. Advances staged on the copy leave
// the original untouched, including its skipped cache and key buffers.
func CloneState(st *domain.RatchetState) *domain.RatchetState {
	cp := *st
	cp.RootKey = append([]byte(nil), st.RootKey...)
	cp.SendChainKey = append([]byte(nil), st.SendChainKey...)
	cp.RecvChainKey = append([]byte(nil), st.RecvChainKey...)
	cp.StaticTX = append([]byte(nil), st.StaticTX...)
	cp.StaticRX = append([]byte(nil), st.StaticRX...)
	cp.Skipped = make(map[uint64][]byte, len(st.Skipped))
	for id, mk := range st.Skipped {
		cp.Skipped[id] = append([]byte(nil), mk...)
	}
	return &cp
}

// Erase zeroes all key material on session teardown or peer removal.
func Erase(st *domain.RatchetState) {
	memzero.ZeroAll(st.RootKey, st.SendChainKey, st.RecvChainKey, st.StaticTX, st.StaticRX)
	st.RootKey, st.SendChainKey, st.RecvChainKey = nil, nil, nil
	st.StaticTX, st.StaticRX = nil, nil
	for id, mk := range st.Skipped {
		memzero.Zero(mk)
		delete(st.Skipped, id)
	}
}

// skippedID packs a chain position into the cache key. Ordering the
// generation in the high bits makes "smallest id" mean "oldest".
func skippedID(gen, n uint32) uint64 {
	return uint64(gen)<<32 | uint64(n)
}

// skipTo advances the receiving chain up to (but not including) target,
// caching each intermediate message key for out-of-order arrival.
func skipTo(st *domain.RatchetState, target uint32, maxSkipped int) error {
	if target <= st.RecvMsgNum {
		return nil
	}
	if int(target-st.RecvMsgNum) > maxSkipped {
		return fmt.Errorf("%w: %d messages ahead of counter %d",
			domain.ErrExcessiveGap, target-st.RecvMsgNum, st.RecvMsgNum)
	}
	if len(st.RecvChainKey) == 0 {
		return errChainUninitialised
	}
	if st.Skipped == nil {
		st.Skipped = make(map[uint64][]byte)
	}
	for st.RecvMsgNum < target {
		mk, next := deriveMessageKey(st.RecvChainKey)
		memzero.Zero(st.RecvChainKey)
		st.RecvChainKey = next
		st.Skipped[skippedID(st.RecvGeneration, st.RecvMsgNum)] = mk
		st.RecvMsgNum++
		if len(st.Skipped) > maxSkipped {
			evictOldest(st)
		}
	}
	return nil
}

// takeSkipped consumes a cached key; absence means the key was already used,
// evicted, or the packet is a replay.
func takeSkipped(st *domain.RatchetState, gen, n uint32) ([]byte, error) {
	mk, ok := st.Skipped[skippedID(gen, n)]
	if !ok {
		return nil, fmt.Errorf("%w: generation %d message %d", domain.ErrKeyNotAvailable, gen, n)
	}
	delete(st.Skipped, skippedID(gen, n))
	return mk, nil
}

func evictOldest(st *domain.RatchetState) {
	var oldest uint64
	first := true
	for id := range st.Skipped {
		if first || id < oldest {
			oldest, first = id, false
		}
	}
	if !first {
		memzero.Zero(st.Skipped[oldest])
		delete(st.Skipped, oldest)
	}
}
