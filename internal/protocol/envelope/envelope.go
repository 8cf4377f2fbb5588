package envelope

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"murmur/internal/domain"
)

// NonceSize is the XChaCha20-Poly1305 nonce length. Large enough that a
// fresh random nonce per message is safe without coordination.
const NonceSize = chacha20poly1305.NonceSizeX

// Seal encrypts one message under a one-time ratchet message key. The chain
// position travels in the clear for the receiver's benefit and is bound as
// associated data so it cannot be tampered with independently.
func Seal(key []byte, gen, n, prevLen uint32, plaintext []byte) (domain.CipherPacket, error) {
	pkt := domain.CipherPacket{
		Mode:            domain.ModeRatcheted,
		MessageNumber:   n,
		PrevChainLength: prevLen,
		Generation:      gen,
	}
	return seal(key, pkt, plaintext)
}

// Open decrypts a ratcheted packet with the message key for its position.
func Open(key []byte, pkt domain.CipherPacket) ([]byte, error) {
	if pkt.Mode != domain.ModeRatcheted {
		return nil, fmt.Errorf("%w: packet mode %q is not ratcheted", domain.ErrAuthenticationFailure, pkt.Mode)
	}
	return open(key, pkt)
}

// SealStatic encrypts under the static directional tx key. Used before a
// ratchet is established; confidentiality and integrity only, no forward
// secrecy. Static packets never carry a message number.
func SealStatic(key, plaintext []byte) (domain.CipherPacket, error) {
	return seal(key, domain.CipherPacket{Mode: domain.ModeStatic}, plaintext)
}

// OpenStatic decrypts a static packet with the directional rx key.
func OpenStatic(key []byte, pkt domain.CipherPacket) ([]byte, error) {
	if pkt.Mode != domain.ModeStatic {
		return nil, fmt.Errorf("%w: packet mode %q is not static", domain.ErrAuthenticationFailure, pkt.Mode)
	}
	return open(key, pkt)
}

func seal(key []byte, pkt domain.CipherPacket, plaintext []byte) (domain.CipherPacket, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return domain.CipherPacket{}, fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return domain.CipherPacket{}, err
	}
	pkt.Nonce = nonce
	pkt.Ciphertext = aead.Seal(nil, nonce, plaintext, adBytes(pkt))
	return pkt, nil
}

func open(key []byte, pkt domain.CipherPacket) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}
	if len(pkt.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad nonce length %d", domain.ErrAuthenticationFailure, len(pkt.Nonce))
	}
	pt, err := aead.Open(nil, pkt.Nonce, pkt.Ciphertext, adBytes(pkt))
	if err != nil {
		return nil, domain.ErrAuthenticationFailure
	}
	return pt, nil
}

// adBytes encodes the envelope header for AEAD binding.
func adBytes(pkt domain.CipherPacket) []byte {
	out := make([]byte, 0, len(pkt.Mode)+12)
	out = append(out, string(pkt.Mode)...)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], pkt.Generation)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], pkt.MessageNumber)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], pkt.PrevChainLength)
	out = append(out, b[:]...)
	return out
}
