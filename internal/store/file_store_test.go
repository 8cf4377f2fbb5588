package store

import (
	"bytes"
	"testing"

	"murmur/internal/domain"
)

func TestFileStateStore_RoundTrip(t *testing.T) {
	s := NewFileStateStore(t.TempDir())

	if _, found, err := s.LoadRatchetState("bob"); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}

	blob := []byte(`{"role":0,"send_msg_num":3}`)
	if err := s.StoreRatchetState("bob", blob); err != nil {
		t.Fatalf("StoreRatchetState: %v", err)
	}

	got, found, err := s.LoadRatchetState("bob")
	if err != nil {
		t.Fatalf("LoadRatchetState: %v", err)
	}
	if !found || !bytes.Equal(got, blob) {
		t.Fatalf("round trip failed: found=%v got=%q", found, got)
	}
}

func TestFileStateStore_OverwriteAndDelete(t *testing.T) {
	s := NewFileStateStore(t.TempDir())

	if err := s.StoreRatchetState("bob", []byte("v1")); err != nil {
		t.Fatalf("store v1: %v", err)
	}
	if err := s.StoreRatchetState("bob", []byte("v2")); err != nil {
		t.Fatalf("store v2: %v", err)
	}
	got, _, err := s.LoadRatchetState("bob")
	if err != nil || string(got) != "v2" {
		t.Fatalf("overwrite: got %q err=%v", got, err)
	}

	if err := s.DeleteRatchetState("bob"); err != nil {
		t.Fatalf("DeleteRatchetState: %v", err)
	}
	if _, found, _ := s.LoadRatchetState("bob"); found {
		t.Fatal("blob survived delete")
	}

	// Deleting again is not an error.
	if err := s.DeleteRatchetState("bob"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestFileStateStore_PeersAreIndependent(t *testing.T) {
	s := NewFileStateStore(t.TempDir())

	if err := s.StoreRatchetState("bob", []byte("bob-state")); err != nil {
		t.Fatalf("store bob: %v", err)
	}
	if err := s.StoreRatchetState("carol", []byte("carol-state")); err != nil {
		t.Fatalf("store carol: %v", err)
	}
	if err := s.DeleteRatchetState("bob"); err != nil {
		t.Fatalf("delete bob: %v", err)
	}

	got, found, err := s.LoadRatchetState("carol")
	if err != nil || !found || string(got) != "carol-state" {
		t.Fatalf("carol's state affected: found=%v got=%q err=%v", found, got, err)
	}
}

func TestIdentityFileStore_RoundTrip(t *testing.T) {
	s := NewIdentityFileStore(t.TempDir())

	kp := domain.KeyPair{}
	for i := range kp.Public {
		kp.Public[i] = byte(i)
		kp.Private[i] = byte(255 - i)
	}

	if err := s.SaveIdentity("correct horse", kp); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	got, err := s.LoadIdentity("correct horse")
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if got != kp {
		t.Fatal("identity did not round-trip")
	}
}

func TestIdentityFileStore_WrongPassphrase(t *testing.T) {
	s := NewIdentityFileStore(t.TempDir())

	if err := s.SaveIdentity("right", domain.KeyPair{}); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if _, err := s.LoadIdentity("wrong"); err == nil {
		t.Fatal("wrong passphrase accepted")
	}
}

func TestIdentityFileStore_MissingIdentity(t *testing.T) {
	s := NewIdentityFileStore(t.TempDir())
	if _, err := s.LoadIdentity("any"); err == nil {
		t.Fatal("want error for missing identity")
	}
}
