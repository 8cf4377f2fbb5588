package keyexchange

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"

	"murmur/internal/domain"
	"murmur/internal/util/memzero"
)

// KeySize is the size of every key this package consumes or produces.
const KeySize = 32

// Agree derives the directional session keys shared with a peer.
//
// The role is not caller-supplied: both parties compare the two public keys
// byte by byte and the lexicographically smaller one becomes CLIENT, so both
// sides compute complementary keys without any coordination message. The
// session keys are a hash of the Diffie-Hellman secret bound to both public
// keys in role order; the CLIENT takes the first half as its receiving key,
// the SERVER the converse, which makes A.TX == B.RX bit for bit.
func Agree(our domain.KeyPair, theirPub domain.X25519Public) (domain.SessionKeys, error) {
	if err := checkPublic(our.Public); err != nil {
		return domain.SessionKeys{}, err
	}
	if err := checkPublic(theirPub); err != nil {
		return domain.SessionKeys{}, err
	}

	role := roleFor(our.Public, theirPub)

	shared, err := curve25519.X25519(our.Private.Slice(), theirPub.Slice())
	if err != nil {
		return domain.SessionKeys{}, fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}

	clientPub, serverPub := our.Public, theirPub
	if role == domain.RoleServer {
		clientPub, serverPub = theirPub, our.Public
	}

	h, err := blake2b.New512(nil)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	h.Write(shared)
	h.Write(clientPub.Slice())
	h.Write(serverPub.Slice())
	session := h.Sum(nil)
	memzero.Zero(shared)

	keys := domain.SessionKeys{
		TX:   make([]byte, KeySize),
		RX:   make([]byte, KeySize),
		Role: role,
	}
	if role == domain.RoleClient {
		copy(keys.RX, session[:KeySize])
		copy(keys.TX, session[KeySize:])
	} else {
		copy(keys.TX, session[:KeySize])
		copy(keys.RX, session[KeySize:])
	}
	memzero.Zero(session)
	return keys, nil
}

// roleFor assigns CLIENT to the smaller public key. Identical keys cannot
// occur in practice; the tie defaults to CLIENT.
func roleFor(ours, theirs domain.X25519Public) domain.Role {
	if bytes.Compare(ours.Slice(), theirs.Slice()) <= 0 {
		return domain.RoleClient
	}
	return domain.RoleServer
}

// checkPublic rejects the obviously malformed all-zero point up front;
// low-order points are caught by the X25519 call itself.
func checkPublic(pub domain.X25519Public) error {
	var zero domain.X25519Public
	if pub == zero {
		return fmt.Errorf("%w: all-zero public key", domain.ErrInvalidKeyFormat)
	}
	return nil
}
