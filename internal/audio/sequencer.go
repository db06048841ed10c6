package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

// DialogMode selects how long a dialog keeps playing.
type DialogMode int

const (
	// AutoStop plays for a fixed budget from the start, regardless of keys.
	AutoStop DialogMode = iota
	// Held plays while the dialog is forced or its keys are held.
	Held
)

func (m DialogMode) String() string {
	if m == Held {
		return "held"
	}
	return "auto-stop"
}

// FilePlayer starts a fire-and-forget file play.
type FilePlayer interface {
	Play(path string)
}

// Sequencer plays dialogs, one goroutine per dialog run.
type Sequencer struct {
	logger *slog.Logger
	player FilePlayer
	store  *store.Store

	mu       sync.RWMutex
	autoStop time.Duration
	minDelay time.Duration

	wg sync.WaitGroup
}

// NewSequencer creates a dialog sequencer. minDelay bounds how fast a dialog
// with a zero delay may fire files.
func NewSequencer(player FilePlayer, st *store.Store, autoStop, minDelay time.Duration, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		logger:   logger,
		player:   player,
		store:    st,
		autoStop: autoStop,
		minDelay: minDelay,
	}
}

// SetTiming updates the auto-stop budget and minimum delay.
func (s *Sequencer) SetTiming(autoStop, minDelay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoStop = autoStop
	s.minDelay = minDelay
}

// Play starts d in the given mode. keysHeld reports whether all of the
// dialog's trigger keys are down; it is only consulted in Held mode and may be
// nil. Play returns false without effect if d is already active or has no
// files.
func (s *Sequencer) Play(d *model.Dialog, mode DialogMode, forced bool, keysHeld func() bool) bool {
	if !d.Playable() || d.State() == nil {
		return false
	}
	gen, ok := d.State().Activate(forced)
	if !ok {
		return false
	}
	if keysHeld == nil {
		keysHeld = func() bool { return false }
	}

	s.mu.RLock()
	budget, minDelay := s.autoStop, s.minDelay
	s.mu.RUnlock()

	s.logger.Debug("dialog started", "label", d.Label, "mode", mode.String(), "forced", forced)
	s.store.RequestRedraw()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			// A restart after a stop owns the state now; leave it alone.
			if d.State().ClearOwned(gen) {
				s.store.RequestRedraw()
			}
			if r := recover(); r != nil {
				s.logger.Error("dialog panicked", "label", d.Label, "panic", r)
			}
		}()
		s.run(d, gen, mode, budget, max(d.DelayDuration(), minDelay), keysHeld)
	}()
	return true
}

func (s *Sequencer) run(d *model.Dialog, gen uint64, mode DialogMode, budget, delay time.Duration, keysHeld func() bool) {
	start := time.Now()
	for {
		file, ok := d.NextFile()
		if !ok {
			return
		}
		s.player.Play(file)
		s.store.RequestRedraw()

		time.Sleep(delay)

		switch mode {
		case AutoStop:
			if !d.State().Owns(gen) || time.Since(start) >= budget {
				return
			}
		case Held:
			if !d.State().HoldingOwned(gen, keysHeld()) {
				return
			}
		}
	}
}

// Wait blocks until every dialog run started so far has finished.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
