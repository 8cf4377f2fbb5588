package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"murmur/internal/domain"
	"murmur/internal/protocol/envelope"
	"murmur/internal/protocol/keyexchange"
	"murmur/internal/protocol/ratchet"
	"murmur/internal/rotation"
	"murmur/internal/util/memzero"
)

// Coordinator is the orchestration surface for one peer relationship. It
// owns that relationship's ratchet state, initialises it lazily on first
// use, and serialises every encrypt, decrypt and rotate behind one mutex.
//
// The mutex is the sole mechanism preventing one-time key reuse: two sends
// racing on the same state must never both observe the same message number.
type Coordinator struct {
	peer  string
	ident domain.KeyPair
	dir   domain.Directory
	store domain.StateStore
	sched *rotation.Scheduler

	mu sync.Mutex
	st *domain.RatchetState
}

// Send encrypts plaintext for the peer, advancing the sending chain by one
// step and persisting the updated state before the packet is returned.
func (c *Coordinator) Send(ctx context.Context, plaintext []byte) (domain.CipherPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureState(ctx); err != nil {
		return domain.CipherPacket{}, err
	}

	c.sched.CheckMessageBasedRotation(c.peer, c.st)

	gen := c.st.SendGeneration
	n := c.st.SendMsgNum
	prevLen := c.st.PrevSendChainLen

	mk, err := ratchet.AdvanceSendingChain(c.st)
	if err != nil {
		return domain.CipherPacket{}, err
	}
	pkt, err := envelope.Seal(mk, gen, n, prevLen, plaintext)
	memzero.Zero(mk)
	if err != nil {
		return domain.CipherPacket{}, err
	}

	if err := c.persist(); err != nil {
		return domain.CipherPacket{}, err
	}
	return pkt, nil
}

// SendStatic encrypts under the static directional key: the non-ratcheted
// fallback with no forward secrecy. The state still persists because lazy
// establishment may have just created it.
func (c *Coordinator) SendStatic(ctx context.Context, plaintext []byte) (domain.CipherPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureState(ctx); err != nil {
		return domain.CipherPacket{}, err
	}
	pkt, err := envelope.SealStatic(c.st.StaticTX, plaintext)
	if err != nil {
		return domain.CipherPacket{}, err
	}
	if err := c.persist(); err != nil {
		return domain.CipherPacket{}, err
	}
	return pkt, nil
}

// Receive decrypts a packet from the peer, dispatching on the envelope's
// mode tag. Ratcheted packets advance the receiving chain to the packet's
// position; a key that is gone for good surfaces as ErrKeyNotAvailable and
// a gap beyond the skipped budget as ErrExcessiveGap, never as silent loss.
//
// The chain advance is staged on a copy of the state and committed only
// after the packet authenticates, so a forged packet can never consume the
// one-time key a genuine message at the same position still needs.
func (c *Coordinator) Receive(ctx context.Context, pkt domain.CipherPacket) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureState(ctx); err != nil {
		return nil, err
	}

	if pkt.Mode == domain.ModeStatic {
		return envelope.OpenStatic(c.st.StaticRX, pkt)
	}

	staged := ratchet.CloneState(c.st)
	mk, err := ratchet.AdvanceReceivingChain(
		staged, pkt.Generation, pkt.MessageNumber, pkt.PrevChainLength,
		c.sched.Config().MaxSkipped,
	)
	if err != nil {
		ratchet.Erase(staged)
		return nil, err
	}
	pt, err := envelope.Open(mk, pkt)
	memzero.Zero(mk)
	if err != nil {
		ratchet.Erase(staged)
		return nil, err
	}

	old := c.st
	c.st = staged
	if err := c.persist(); err != nil {
		return nil, err
	}
	ratchet.Erase(old)
	return pt, nil
}

// Rotate re-keys the sending direction immediately and persists. Fails with
// ErrSessionNotFound if no session was ever established with the peer.
func (c *Coordinator) Rotate() error { return c.rotate(true) }

// rotate skips an idle generation unless forced: re-keying a chain that has
// sent nothing would overwrite PrevSendChainLen and strand the prior
// generation's undelivered tail.
func (c *Coordinator) rotate(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadExisting(); err != nil {
		return err
	}
	if !force && c.st.SendMsgNum == 0 {
		return nil
	}
	ratchet.Rotate(c.st)
	return c.persist()
}

// Cleanup bounds the skipped-key cache and persists if anything changed.
func (c *Coordinator) Cleanup(maxSkipped int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st == nil {
		if err := c.loadExisting(); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil // nothing to clean
			}
			return err
		}
	}
	before := len(c.st.Skipped)
	ratchet.CleanupOldKeys(c.st, maxSkipped)
	if len(c.st.Skipped) == before {
		return nil
	}
	return c.persist()
}

// Teardown zeroes in-memory state and deletes the persisted blob.
func (c *Coordinator) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st != nil {
		ratchet.Erase(c.st)
		c.st = nil
	}
	return c.store.DeleteRatchetState(c.peer)
}

// Position reports the current generations and counters for display
// purposes. It never exposes key material.
func (c *Coordinator) Position() (sendGen, sendN, recvGen, recvN uint32, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		if c.loadExisting() != nil {
			return 0, 0, 0, 0, false
		}
	}
	return c.st.SendGeneration, c.st.SendMsgNum, c.st.RecvGeneration, c.st.RecvMsgNum, true
}

// ensureState loads persisted state or establishes a fresh session. Callers
// hold c.mu.
func (c *Coordinator) ensureState(ctx context.Context) error {
	if c.st != nil {
		return nil
	}
	blob, found, err := c.store.LoadRatchetState(c.peer)
	if err != nil {
		return err
	}
	if found {
		st, err := ratchet.UnmarshalState(blob)
		if err != nil {
			return err
		}
		c.st = &st
		return nil
	}
	return c.establish(ctx)
}

// loadExisting is ensureState minus establishment: state must already exist.
func (c *Coordinator) loadExisting() error {
	if c.st != nil {
		return nil
	}
	blob, found, err := c.store.LoadRatchetState(c.peer)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrSessionNotFound
	}
	st, err := ratchet.UnmarshalState(blob)
	if err != nil {
		return err
	}
	c.st = &st
	return nil
}

// establish runs the key exchange against the peer's directory bundle and
// initialises the ratchet. Both sides derive the same mirrored state
// independently, so there is no handshake message.
func (c *Coordinator) establish(ctx context.Context) error {
	bundle, err := c.dir.FetchPeerBundle(ctx, c.peer)
	if err != nil {
		return fmt.Errorf("fetch bundle for %s: %w", c.peer, err)
	}
	keys, err := keyexchange.Agree(c.ident, bundle.IdentityKey)
	if err != nil {
		return err
	}
	st, err := ratchet.Initialize(&keys)
	if err != nil {
		return err
	}
	c.st = &st
	if err := c.persist(); err != nil {
		return err
	}
	c.sched.StartRotation(c.peer)
	return nil
}

// persist writes the serialized state through the storage collaborator.
// Callers hold c.mu.
func (c *Coordinator) persist() error {
	blob, err := ratchet.MarshalState(c.st)
	if err != nil {
		return err
	}
	return c.store.StoreRatchetState(c.peer, blob)
}
