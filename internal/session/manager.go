package session

import (
	"sort"
	"sync"

	"murmur/internal/domain"
	"murmur/internal/protocol/ratchet"
	"murmur/internal/rotation"
)

// Manager owns one Coordinator per peer relationship plus the rotation
// scheduler. It is constructed once at app start and passed by handle; there
// are no package-level singletons.
type Manager struct {
	ident domain.KeyPair
	dir   domain.Directory
	store domain.StateStore
	sched *rotation.Scheduler

	mu     sync.Mutex
	coords map[string]*Coordinator
}

// NewManager wires the session layer. cfg zero values fall back to the
// rotation defaults.
func NewManager(ident domain.KeyPair, dir domain.Directory, store domain.StateStore, cfg rotation.Config) *Manager {
	m := &Manager{
		ident:  ident,
		dir:    dir,
		store:  store,
		coords: make(map[string]*Coordinator),
	}
	m.sched = rotation.New(cfg, m)
	return m
}

// Coordinator returns the coordinator for peer, creating it on first use.
// Operations on coordinators for different peers run fully in parallel.
func (m *Manager) Coordinator(peer string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coords[peer]; ok {
		return c
	}
	c := &Coordinator{
		peer:  peer,
		ident: m.ident,
		dir:   m.dir,
		store: m.store,
		sched: m.sched,
	}
	m.coords[peer] = c
	return c
}

// Scheduler exposes the rotation scheduler for emergency triggers.
func (m *Manager) Scheduler() *rotation.Scheduler { return m.sched }

// Teardown stops the peer's rotation, zeroes its state and deletes the
// persisted blob.
func (m *Manager) Teardown(peer string) error {
	m.sched.StopRotation(peer)

	m.mu.Lock()
	c, ok := m.coords[peer]
	delete(m.coords, peer)
	m.mu.Unlock()

	if !ok {
		return m.store.DeleteRatchetState(peer)
	}
	return c.Teardown()
}

// Close stops all scheduling and zeroes every in-memory session.
func (m *Manager) Close() {
	m.sched.StopAll()

	m.mu.Lock()
	defer m.mu.Unlock()
	for peer, c := range m.coords {
		c.mu.Lock()
		if c.st != nil {
			ratchet.Erase(c.st)
			c.st = nil
		}
		c.mu.Unlock()
		delete(m.coords, peer)
	}
}

// RotatePeer implements rotation.Rotator under the peer's own lock.
func (m *Manager) RotatePeer(peer string, force bool) error {
	return m.Coordinator(peer).rotate(force)
}

// CleanupPeer implements rotation.Rotator.
func (m *Manager) CleanupPeer(peer string, maxSkipped int) error {
	return m.Coordinator(peer).Cleanup(maxSkipped)
}

// Peers implements rotation.Rotator: every relationship this manager has
// touched, in stable order.
func (m *Manager) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	peers := make([]string, 0, len(m.coords))
	for peer := range m.coords {
		peers = append(peers, peer)
	}
	sort.Strings(peers)
	return peers
}

var _ rotation.Rotator = (*Manager)(nil)
