package session_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"murmur/internal/crypto"
	"murmur/internal/domain"
	"murmur/internal/rotation"
	"murmur/internal/session"
)

// memStore is an in-memory domain.StateStore.
type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) LoadRatchetState(peer string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[peer]
	return b, ok, nil
}

func (s *memStore) StoreRatchetState(peer string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[peer] = append([]byte(nil), blob...)
	return nil
}

func (s *memStore) DeleteRatchetState(peer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, peer)
	return nil
}

func (s *memStore) has(peer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[peer]
	return ok
}

// memDirectory is an in-memory domain.Directory.
type memDirectory struct {
	bundles map[string]domain.PeerKeyBundle
}

func (d *memDirectory) FetchPeerBundle(_ context.Context, handle string) (domain.PeerKeyBundle, error) {
	b, ok := d.bundles[handle]
	if !ok {
		return domain.PeerKeyBundle{}, domain.ErrPeerNotFound
	}
	return b, nil
}

// testPair wires two managers that resolve each other through a shared
// directory but persist into separate stores.
type testPair struct {
	alice, bob           *session.Manager
	aliceStore, bobStore *memStore
}

func makePair(t *testing.T, cfg rotation.Config) testPair {
	t.Helper()

	kpA, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	kpB, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	dir := &memDirectory{bundles: map[string]domain.PeerKeyBundle{
		"alice": {IdentityKey: kpA.Public},
		"bob":   {IdentityKey: kpB.Public},
	}}

	p := testPair{aliceStore: newMemStore(), bobStore: newMemStore()}
	p.alice = session.NewManager(kpA, dir, p.aliceStore, cfg)
	p.bob = session.NewManager(kpB, dir, p.bobStore, cfg)
	t.Cleanup(p.alice.Close)
	t.Cleanup(p.bob.Close)
	return p
}

func TestScenario_HelloWorldReply(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	aliceToBob := p.alice.Coordinator("bob")
	bobFromAlice := p.bob.Coordinator("alice")

	pkt0, err := aliceToBob.Send(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("send hello: %v", err)
	}
	pkt1, err := aliceToBob.Send(ctx, []byte("world"))
	if err != nil {
		t.Fatalf("send world: %v", err)
	}
	if pkt0.MessageNumber != 0 || pkt1.MessageNumber != 1 {
		t.Fatalf("message numbers %d,%d want 0,1", pkt0.MessageNumber, pkt1.MessageNumber)
	}

	var got []string
	for _, pkt := range []domain.CipherPacket{pkt0, pkt1} {
		pt, err := bobFromAlice.Receive(ctx, pkt)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		got = append(got, string(pt))
	}
	if got[0] != "hello" || got[1] != "world" {
		t.Fatalf("got %v", got)
	}

	// Bob replies on his own chain, starting at message 0.
	reply, err := bobFromAlice.Send(ctx, []byte("reply"))
	if err != nil {
		t.Fatalf("send reply: %v", err)
	}
	if reply.MessageNumber != 0 {
		t.Fatalf("bob's first message number %d, want 0", reply.MessageNumber)
	}
	pt, err := aliceToBob.Receive(ctx, reply)
	if err != nil {
		t.Fatalf("receive reply: %v", err)
	}
	if string(pt) != "reply" {
		t.Fatalf("got %q", pt)
	}
}

func TestOutOfOrderThroughCoordinator(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	var pkts []domain.CipherPacket
	for _, m := range []string{"zero", "one", "two"} {
		pkt, err := p.alice.Coordinator("bob").Send(ctx, []byte(m))
		if err != nil {
			t.Fatalf("send %s: %v", m, err)
		}
		pkts = append(pkts, pkt)
	}

	want := []string{"two", "zero", "one"}
	for i, idx := range []int{2, 0, 1} {
		pt, err := p.bob.Coordinator("alice").Receive(ctx, pkts[idx])
		if err != nil {
			t.Fatalf("receive %d: %v", idx, err)
		}
		if string(pt) != want[i] {
			t.Fatalf("got %q, want %q", pt, want[i])
		}
	}
}

func TestConcurrentSendsNeverShareMessageNumber(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()
	coord := p.alice.Coordinator("bob")

	const workers = 16
	var wg sync.WaitGroup
	pkts := make([]domain.CipherPacket, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pkt, err := coord.Send(ctx, []byte("racing"))
			if err != nil {
				t.Errorf("send: %v", err)
				return
			}
			pkts[i] = pkt
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for _, pkt := range pkts {
		if seen[pkt.MessageNumber] {
			t.Fatalf("message number %d used twice", pkt.MessageNumber)
		}
		seen[pkt.MessageNumber] = true
	}
}

func TestStaticFallback(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	pkt, err := p.alice.Coordinator("bob").SendStatic(ctx, []byte("pre-ratchet"))
	if err != nil {
		t.Fatalf("SendStatic: %v", err)
	}
	if pkt.Mode != domain.ModeStatic {
		t.Fatalf("mode %q, want static", pkt.Mode)
	}

	pt, err := p.bob.Coordinator("alice").Receive(ctx, pkt)
	if err != nil {
		t.Fatalf("receive static: %v", err)
	}
	if string(pt) != "pre-ratchet" {
		t.Fatalf("got %q", pt)
	}
}

func TestTamperedPacketSurfacesAuthFailure(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	pkt, err := p.alice.Coordinator("bob").Send(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	pkt.Ciphertext[len(pkt.Ciphertext)/2] ^= 0x80

	if _, err := p.bob.Coordinator("alice").Receive(ctx, pkt); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("want ErrAuthenticationFailure, got %v", err)
	}
}

func TestForgeryDoesNotConsumeMessageKey(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	pkt, err := p.alice.Coordinator("bob").Send(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	forged := pkt
	forged.Ciphertext = append([]byte(nil), pkt.Ciphertext...)
	forged.Ciphertext[0] ^= 0x01

	bobFromAlice := p.bob.Coordinator("alice")
	if _, err := bobFromAlice.Receive(ctx, forged); !errors.Is(err, domain.ErrAuthenticationFailure) {
		t.Fatalf("want ErrAuthenticationFailure, got %v", err)
	}

	// The genuine packet at the same position must still decrypt. A forgery
	// that burned the chain step would surface here as ErrKeyNotAvailable.
	pt, err := bobFromAlice.Receive(ctx, pkt)
	if err != nil {
		t.Fatalf("genuine packet after forgery: %v", err)
	}
	if string(pt) != "payload" {
		t.Fatalf("got %q", pt)
	}

	// And the chain keeps moving afterwards.
	next, err := p.alice.Coordinator("bob").Send(ctx, []byte("next"))
	if err != nil {
		t.Fatalf("send next: %v", err)
	}
	if pt, err := bobFromAlice.Receive(ctx, next); err != nil || string(pt) != "next" {
		t.Fatalf("receive next: %v %q", err, pt)
	}
}

func TestScheduledRotationSkipsIdleGeneration(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	aliceToBob := p.alice.Coordinator("bob")
	bobFromAlice := p.bob.Coordinator("alice")

	// Two messages in generation 0; the second is delayed in transit.
	pkt0, err := aliceToBob.Send(ctx, []byte("tail-0"))
	if err != nil {
		t.Fatalf("send tail-0: %v", err)
	}
	pkt1, err := aliceToBob.Send(ctx, []byte("tail-1"))
	if err != nil {
		t.Fatalf("send tail-1: %v", err)
	}
	if _, err := bobFromAlice.Receive(ctx, pkt0); err != nil {
		t.Fatalf("receive tail-0: %v", err)
	}

	// A scheduled rotation with traffic behind it re-keys; a second one on
	// the now-idle generation must not open another empty generation.
	if err := p.alice.RotatePeer("bob", false); err != nil {
		t.Fatalf("scheduled rotation: %v", err)
	}
	if err := p.alice.RotatePeer("bob", false); err != nil {
		t.Fatalf("idle scheduled rotation: %v", err)
	}

	fresh, err := aliceToBob.Send(ctx, []byte("fresh"))
	if err != nil {
		t.Fatalf("send fresh: %v", err)
	}
	if fresh.Generation != 1 {
		t.Fatalf("idle generation was rotated: generation %d, want 1", fresh.Generation)
	}
	if _, err := bobFromAlice.Receive(ctx, fresh); err != nil {
		t.Fatalf("receive fresh: %v", err)
	}

	// The delayed generation-0 tail still drains through the skipped cache.
	pt, err := bobFromAlice.Receive(ctx, pkt1)
	if err != nil {
		t.Fatalf("receive delayed tail-1: %v", err)
	}
	if string(pt) != "tail-1" {
		t.Fatalf("got %q", pt)
	}
}

func TestMessageCountRotationAcrossParties(t *testing.T) {
	p := makePair(t, rotation.Config{MessageInterval: 4})
	ctx := context.Background()

	aliceToBob := p.alice.Coordinator("bob")
	bobFromAlice := p.bob.Coordinator("alice")

	// Enough traffic to cross the rotation boundary twice.
	for i := 0; i < 10; i++ {
		pkt, err := aliceToBob.Send(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		pt, err := bobFromAlice.Receive(ctx, pkt)
		if err != nil {
			t.Fatalf("receive %d (gen %d): %v", i, pkt.Generation, err)
		}
		if !bytes.Equal(pt, []byte{byte(i)}) {
			t.Fatalf("plaintext mismatch at %d", i)
		}
	}

	sendGen, _, _, _, ok := aliceToBob.Position()
	if !ok || sendGen < 2 {
		t.Fatalf("sender generation %d, want >= 2", sendGen)
	}
}

func TestEmergencyRotationStaysDecryptable(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	aliceToBob := p.alice.Coordinator("bob")
	bobFromAlice := p.bob.Coordinator("alice")

	pkt, err := aliceToBob.Send(ctx, []byte("before"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := bobFromAlice.Receive(ctx, pkt); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if err := p.alice.Scheduler().EmergencyRotation("bob"); err != nil {
		t.Fatalf("EmergencyRotation: %v", err)
	}

	pkt, err = aliceToBob.Send(ctx, []byte("after"))
	if err != nil {
		t.Fatalf("send after rotation: %v", err)
	}
	if pkt.Generation == 0 {
		t.Fatal("emergency rotation did not advance the generation")
	}
	pt, err := bobFromAlice.Receive(ctx, pkt)
	if err != nil {
		t.Fatalf("receive after rotation: %v", err)
	}
	if string(pt) != "after" {
		t.Fatalf("got %q", pt)
	}
}

func TestRotateUnknownPeer(t *testing.T) {
	p := makePair(t, rotation.Config{})

	if err := p.alice.RotatePeer("stranger-with-no-session", true); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestTeardownDeletesState(t *testing.T) {
	p := makePair(t, rotation.Config{})
	ctx := context.Background()

	if _, err := p.alice.Coordinator("bob").Send(ctx, []byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !p.aliceStore.has("bob") {
		t.Fatal("state not persisted after send")
	}

	if err := p.alice.Teardown("bob"); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if p.aliceStore.has("bob") {
		t.Fatal("state survived teardown")
	}
}

func TestStateSurvivesManagerRestart(t *testing.T) {
	kpA, _ := crypto.GenerateKeyPair()
	kpB, _ := crypto.GenerateKeyPair()
	dir := &memDirectory{bundles: map[string]domain.PeerKeyBundle{
		"alice": {IdentityKey: kpA.Public},
		"bob":   {IdentityKey: kpB.Public},
	}}
	storeA := newMemStore()
	storeB := newMemStore()
	ctx := context.Background()

	alice := session.NewManager(kpA, dir, storeA, rotation.Config{})
	bob := session.NewManager(kpB, dir, storeB, rotation.Config{})
	defer bob.Close()

	pkt0, err := alice.Coordinator("bob").Send(ctx, []byte("first"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	alice.Close()

	// A fresh manager over the same store continues the same chain.
	alice2 := session.NewManager(kpA, dir, storeA, rotation.Config{})
	defer alice2.Close()
	pkt1, err := alice2.Coordinator("bob").Send(ctx, []byte("second"))
	if err != nil {
		t.Fatalf("send after restart: %v", err)
	}
	if pkt1.MessageNumber != pkt0.MessageNumber+1 {
		t.Fatalf("restart reset the chain: %d then %d", pkt0.MessageNumber, pkt1.MessageNumber)
	}

	for _, want := range []string{"first", "second"} {
		pkt := pkt0
		if want == "second" {
			pkt = pkt1
		}
		pt, err := bob.Coordinator("alice").Receive(ctx, pkt)
		if err != nil {
			t.Fatalf("receive %q: %v", want, err)
		}
		if string(pt) != want {
			t.Fatalf("got %q, want %q", pt, want)
		}
	}

	// Give the scheduler goroutines a beat to wind down.
	time.Sleep(10 * time.Millisecond)
}
