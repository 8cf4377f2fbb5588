package rotation

import (
	"sync"
	"time"

	"murmur/internal/domain"
	"murmur/internal/protocol/ratchet"
)

// Defaults for the rotation policy.
const (
	DefaultWallClockInterval = 24 * time.Hour
	DefaultMessageInterval   = 100
	DefaultSweepInterval     = time.Hour
)

// Config tunes the rotation policy.
type Config struct {
	WallClockInterval time.Duration // periodic re-key per peer
	MessageInterval   uint32        // re-key every N sent messages
	SweepInterval     time.Duration // skipped-key cleanup cadence
	MaxSkipped        int           // skipped-key budget per peer
}

func (c Config) withDefaults() Config {
	if c.WallClockInterval <= 0 {
		c.WallClockInterval = DefaultWallClockInterval
	}
	if c.MessageInterval == 0 {
		c.MessageInterval = DefaultMessageInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxSkipped <= 0 {
		c.MaxSkipped = ratchet.DefaultMaxSkipped
	}
	return c
}

// Rotator is the handle back into the session layer. Implementations must
// perform the mutation under the peer's serialisation lock so a scheduled
// rotation never interleaves with an in-flight send.
type Rotator interface {
	// RotatePeer re-keys the peer's sending chain. When force is false the
	// implementation skips a generation that has sent no messages, so an
	// idle peer never accumulates empty generations.
	RotatePeer(peer string, force bool) error
	CleanupPeer(peer string, maxSkipped int) error
	Peers() []string
}

// rotationTimer is per-peer scheduling bookkeeping.
type rotationTimer struct {
	timer        *time.Timer
	lastRotation time.Time
}

// Scheduler decides when rotations run. It is an explicit structure owned by
// the session manager, not a process-wide singleton.
type Scheduler struct {
	cfg Config
	rot Rotator

	mu     sync.Mutex
	timers map[string]*rotationTimer
	done   chan struct{}
	closed bool
}

// New builds a scheduler and starts its periodic cleanup sweep.
func New(cfg Config, rot Rotator) *Scheduler {
	s := &Scheduler{
		cfg:    cfg.withDefaults(),
		rot:    rot,
		timers: make(map[string]*rotationTimer),
		done:   make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Config reports the effective (default-filled) policy.
func (s *Scheduler) Config() Config { return s.cfg }

// StartRotation begins the recurring wall-clock rotation timer for peer.
// Restarting an already-scheduled peer resets its timer.
func (s *Scheduler) StartRotation(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if rt, ok := s.timers[peer]; ok {
		rt.timer.Stop()
	}
	s.timers[peer] = &rotationTimer{
		timer:        time.AfterFunc(s.cfg.WallClockInterval, func() { s.fire(peer) }),
		lastRotation: time.Now(),
	}
}

// StopRotation cancels the peer's timer. Used on session teardown.
func (s *Scheduler) StopRotation(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.timers[peer]; ok {
		rt.timer.Stop()
		delete(s.timers, peer)
	}
}

// StopAll cancels every timer and the cleanup sweep.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for peer, rt := range s.timers {
		rt.timer.Stop()
		delete(s.timers, peer)
	}
}

// EmergencyRotation re-keys immediately, bypassing both thresholds. Used
// after suspected key compromise; the wall-clock timer restarts from now.
func (s *Scheduler) EmergencyRotation(peer string) error {
	if err := s.rot.RotatePeer(peer, true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.timers[peer]; ok {
		rt.timer.Stop()
		rt.timer = time.AfterFunc(s.cfg.WallClockInterval, func() { s.fire(peer) })
		rt.lastRotation = time.Now()
	}
	return nil
}

// CheckMessageBasedRotation rotates st in place once the send counter hits
// the message interval. Called on the send path while the caller holds the
// peer lock, so it mutates the state directly instead of going through the
// Rotator.
func (s *Scheduler) CheckMessageBasedRotation(peer string, st *domain.RatchetState) bool {
	if st.SendMsgNum == 0 || st.SendMsgNum%s.cfg.MessageInterval != 0 {
		return false
	}
	ratchet.Rotate(st)
	s.mu.Lock()
	if rt, ok := s.timers[peer]; ok {
		rt.lastRotation = time.Now()
	}
	s.mu.Unlock()
	return true
}

// fire runs one wall-clock rotation and reschedules.
func (s *Scheduler) fire(peer string) {
	// Rotation failure (e.g. peer torn down mid-flight) is not fatal to
	// the schedule; the next tick tries again.
	_ = s.rot.RotatePeer(peer, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	rt, ok := s.timers[peer]
	if !ok {
		return
	}
	rt.lastRotation = time.Now()
	rt.timer = time.AfterFunc(s.cfg.WallClockInterval, func() { s.fire(peer) })
}

// sweepLoop periodically evicts stale skipped keys across all known peers to
// bound total memory.
func (s *Scheduler) sweepLoop() {
	t := time.NewTicker(s.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			for _, peer := range s.rot.Peers() {
				_ = s.rot.CleanupPeer(peer, s.cfg.MaxSkipped)
			}
		}
	}
}
