package model

import "sync"

// PlayState is the (active, forced) pair shared by the waveform mixer, the
// dialog sequencer, the hotkey router and the control socket.
// Both flags are always read and written together under the same lock.
//
// Every successful activation starts a new generation. A playback attempt
// keeps the generation it was handed and checks it before acting, so a run
// that was stopped and superseded by a restart cannot act on the new one.
type PlayState struct {
	mu     sync.Mutex
	active bool
	forced bool
	gen    uint64
}

// NewPlayState returns an inactive play state.
func NewPlayState() *PlayState {
	return &PlayState{}
}

// Load returns both flags as one consistent snapshot.
func (s *PlayState) Load() (active, forced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.forced
}

// Active reports whether a playback attempt currently owns the entity.
func (s *PlayState) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// TryActivate marks the entity active and returns true, or returns false
// without touching the flags if another playback attempt already owns it.
func (s *PlayState) TryActivate(forced bool) bool {
	_, ok := s.Activate(forced)
	return ok
}

// Activate is TryActivate returning the generation owned by the new
// playback attempt.
func (s *PlayState) Activate(forced bool) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return 0, false
	}
	s.gen++
	s.active = true
	s.forced = forced
	return s.gen, true
}

// Owns reports whether the entity is active under generation gen.
func (s *PlayState) Owns(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.gen == gen
}

// Force sets the forced flag on an active entity.
// It returns false if the entity is not active.
func (s *PlayState) Force() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.forced = true
	return true
}

// Clear drops both flags.
func (s *PlayState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.forced = false
}

// ClearOwned drops both flags if generation gen still owns the entity.
// It returns true if it cleared them.
func (s *PlayState) ClearOwned(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.gen != gen {
		return false
	}
	s.active = false
	s.forced = false
	return true
}

// Release clears the active flag unless the entity was forced.
// It returns true if the entity transitioned to inactive.
func (s *PlayState) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.forced {
		return false
	}
	s.active = false
	return true
}

// Holding reports whether a held playback should keep going: the entity must
// be active, and either forced or still held by its trigger keys.
func (s *PlayState) Holding(keysHeld bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && (s.forced || keysHeld)
}

// HoldingOwned is Holding restricted to generation gen.
func (s *PlayState) HoldingOwned(gen uint64, keysHeld bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.gen == gen && (s.forced || keysHeld)
}

// ReleaseOwned is Release restricted to generation gen.
func (s *PlayState) ReleaseOwned(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.forced || s.gen != gen {
		return false
	}
	s.active = false
	return true
}
