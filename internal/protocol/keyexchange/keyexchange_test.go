package keyexchange_test

import (
	"bytes"
	"errors"
	"testing"

	"murmur/internal/crypto"
	"murmur/internal/domain"
	"murmur/internal/protocol/keyexchange"
)

// makePair returns a fresh X25519 identity.
func makePair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func TestAgree_MirroredKeys(t *testing.T) {
	a := makePair(t)
	b := makePair(t)

	ka, err := keyexchange.Agree(a, b.Public)
	if err != nil {
		t.Fatalf("Agree (a): %v", err)
	}
	kb, err := keyexchange.Agree(b, a.Public)
	if err != nil {
		t.Fatalf("Agree (b): %v", err)
	}

	if !bytes.Equal(ka.TX, kb.RX) {
		t.Fatal("a.TX != b.RX")
	}
	if !bytes.Equal(ka.RX, kb.TX) {
		t.Fatal("a.RX != b.TX")
	}
	if bytes.Equal(ka.TX, ka.RX) {
		t.Fatal("directional keys must differ")
	}
}

func TestAgree_RolesAreComplementary(t *testing.T) {
	a := makePair(t)
	b := makePair(t)

	ka, err := keyexchange.Agree(a, b.Public)
	if err != nil {
		t.Fatalf("Agree (a): %v", err)
	}
	kb, err := keyexchange.Agree(b, a.Public)
	if err != nil {
		t.Fatalf("Agree (b): %v", err)
	}

	if ka.Role == kb.Role {
		t.Fatalf("both parties got role %v", ka.Role)
	}

	// Role follows lexicographic order of the public keys.
	smaller := ka
	if bytes.Compare(b.Public.Slice(), a.Public.Slice()) < 0 {
		smaller = kb
	}
	if smaller.Role != domain.RoleClient {
		t.Fatal("lexicographically smaller key must be CLIENT")
	}
}

func TestAgree_Deterministic(t *testing.T) {
	a := makePair(t)
	b := makePair(t)

	k1, err := keyexchange.Agree(a, b.Public)
	if err != nil {
		t.Fatalf("Agree: %v", err)
	}
	k2, err := keyexchange.Agree(a, b.Public)
	if err != nil {
		t.Fatalf("Agree: %v", err)
	}
	if !bytes.Equal(k1.TX, k2.TX) || !bytes.Equal(k1.RX, k2.RX) {
		t.Fatal("repeated agreement must produce identical keys")
	}
}

func TestAgree_RejectsZeroKey(t *testing.T) {
	a := makePair(t)
	var zero domain.X25519Public

	if _, err := keyexchange.Agree(a, zero); !errors.Is(err, domain.ErrInvalidKeyFormat) {
		t.Fatalf("want ErrInvalidKeyFormat, got %v", err)
	}

	var badPair domain.KeyPair // zero public key
	b := makePair(t)
	if _, err := keyexchange.Agree(badPair, b.Public); !errors.Is(err, domain.ErrInvalidKeyFormat) {
		t.Fatalf("want ErrInvalidKeyFormat, got %v", err)
	}
}

func TestAgree_RejectsLowOrderPoint(t *testing.T) {
	a := makePair(t)
	var lowOrder domain.X25519Public
	lowOrder[0] = 1 // order-1 point: X25519 yields the all-zero secret

	if _, err := keyexchange.Agree(a, lowOrder); !errors.Is(err, domain.ErrInvalidKeyFormat) {
		t.Fatalf("want ErrInvalidKeyFormat, got %v", err)
	}
}
