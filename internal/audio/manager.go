package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

// Options configures a Manager.
type Options struct {
	SampleRate   int
	ChunkSamples int
	HoldPoll     time.Duration
	AutoStop     time.Duration
	CacheEntries int

	// OnSinkFailure is called when the mixer loses its sink.
	OnSinkFailure func(error)
}

// OptionsFromConfig reads engine settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SampleRate:   cfg.Mixer.SampleRate,
		ChunkSamples: cfg.Mixer.ChunkSamples,
		HoldPoll:     cfg.Mixer.HoldPoll.Duration(),
		AutoStop:     cfg.Dialog.AutoStop.Duration(),
	}
}

// Manager is the entry point to playback for every trigger source.
type Manager struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	store    *store.Store
	holdPoll time.Duration

	cache     *media.Cache
	player    *Player
	mixer     *Mixer
	sequencer *Sequencer

	holders sync.WaitGroup
}

// NewManager creates the playback engine writing to sink.
func NewManager(st *store.Store, sink Sink, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = config.DefaultSampleRate
	}
	if opts.ChunkSamples <= 0 {
		opts.ChunkSamples = config.DefaultChunkSamples
	}
	if opts.HoldPoll <= 0 {
		opts.HoldPoll = config.DefaultHoldPoll
	}
	if opts.AutoStop <= 0 {
		opts.AutoStop = config.DefaultAutoStop
	}

	cache := media.NewCache(beep.SampleRate(opts.SampleRate), opts.CacheEntries, logger)
	player := NewPlayer(st, sink, cache, opts.ChunkSamples, logger)

	return &Manager{
		logger:    logger,
		store:     st,
		holdPoll:  opts.HoldPoll,
		cache:     cache,
		player:    player,
		mixer:     NewMixer(sink, opts.SampleRate, opts.ChunkSamples, opts.OnSinkFailure, logger),
		sequencer: NewSequencer(player, st, opts.AutoStop, opts.HoldPoll, logger),
	}
}

// Start begins the mixer loop.
func (m *Manager) Start(ctx context.Context) {
	m.mixer.Start(ctx)
	m.logger.Info("audio engine started")
}

// Stop halts all playback and the mixer loop.
func (m *Manager) Stop() {
	m.StopAll()
	m.mixer.Stop()
	m.logger.Debug("audio engine stopped")
}

// Cache returns the decoded-file cache.
func (m *Manager) Cache() *media.Cache {
	return m.cache
}

// Player returns the file player.
func (m *Manager) Player() *Player {
	return m.player
}

// Mixer returns the waveform mixer.
func (m *Manager) Mixer() *Mixer {
	return m.mixer
}

// PlayFile plays path unless a rescan of the selected tab is running.
// It returns false if the play was refused.
func (m *Manager) PlayFile(path string) bool {
	if path == "" || m.store.PlayBlocked() {
		return false
	}
	m.player.Play(path)
	return true
}

// StartWaveform starts w until it is stopped explicitly.
func (m *Manager) StartWaveform(w *model.Waveform) bool {
	if !m.mixer.Add(w, true) {
		return false
	}
	m.store.RequestRedraw()
	return true
}

// HoldWaveform starts w for as long as keysHeld reports true. A watcher polls
// the keys and releases the waveform once they are let go.
func (m *Manager) HoldWaveform(w *model.Waveform, keysHeld func() bool) bool {
	gen, ok := m.mixer.add(w, false)
	if !ok {
		return false
	}
	m.store.RequestRedraw()

	m.mu.RLock()
	poll := m.holdPoll
	m.mu.RUnlock()

	m.holders.Add(1)
	go func() {
		defer m.holders.Done()
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		state := w.State()
		for range ticker.C {
			if !state.Owns(gen) {
				return
			}
			if !state.HoldingOwned(gen, keysHeld()) {
				if state.ReleaseOwned(gen) {
					m.store.RequestRedraw()
				}
				return
			}
		}
	}()
	return true
}

// StopWaveform clears w's play state; the mixer drops it on its next tick.
func (m *Manager) StopWaveform(w *model.Waveform) {
	w.State().Clear()
	m.store.RequestRedraw()
}

// PlayDialog starts d in the given mode.
func (m *Manager) PlayDialog(d *model.Dialog, mode DialogMode, forced bool, keysHeld func() bool) bool {
	return m.sequencer.Play(d, mode, forced, keysHeld)
}

// StopDialog clears d's play state; its run ends after the current delay.
func (m *Manager) StopDialog(d *model.Dialog) {
	d.State().Clear()
	m.store.RequestRedraw()
}

// StopAll stops every in-flight file, waveform and dialog.
func (m *Manager) StopAll() {
	files := m.player.StopAll()
	for _, w := range m.store.Waveforms() {
		w.State().Clear()
	}
	for _, d := range m.store.Dialogs() {
		d.State().Clear()
	}
	m.store.RequestRedraw()
	m.logger.Debug("stopped all playback", "files", files)
}

// UpdateConfig applies reloaded timing settings and clears the play state of
// entities that belonged to the previous configuration.
func (m *Manager) UpdateConfig(old, cfg *config.Config) {
	if old != nil {
		for i := range old.Waveforms {
			if s := old.Waveforms[i].State(); s != nil {
				s.Clear()
			}
		}
		for i := range old.Dialogs {
			if s := old.Dialogs[i].State(); s != nil {
				s.Clear()
			}
		}
	}

	opts := OptionsFromConfig(cfg)
	m.mu.Lock()
	m.holdPoll = opts.HoldPoll
	m.mu.Unlock()
	m.sequencer.SetTiming(opts.AutoStop, opts.HoldPoll)
	m.cache.Clear()

	m.logger.Debug("audio engine config updated")
}

// Wait blocks until every background play, dialog and hold watcher started so
// far has finished.
func (m *Manager) Wait() {
	m.player.Wait()
	m.sequencer.Wait()
	m.holders.Wait()
}
