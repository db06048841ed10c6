package hotkey

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/jmylchreest/soundboard/internal/audio"
	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

// Engine is the playback surface the router drives.
type Engine interface {
	PlayFile(path string) bool
	HoldWaveform(w *model.Waveform, keysHeld func() bool) bool
	PlayDialog(d *model.Dialog, mode audio.DialogMode, forced bool, keysHeld func() bool) bool
	StopAll()
}

type fileBinding struct {
	keys []Key
	path string
}

type waveformBinding struct {
	keys     []Key
	waveform *model.Waveform
}

type dialogBinding struct {
	keys   []Key
	dialog *model.Dialog
}

type bindings struct {
	files     []fileBinding
	waveforms []waveformBinding
	dialogs   []dialogBinding
	stop      []Key
}

// Router evaluates every binding on every key event.
//
// Matching requires every key of a binding to be held; extra held keys are
// tolerated.
type Router struct {
	mu       sync.Mutex
	logger   *slog.Logger
	keys     *PressedSet
	engine   Engine
	store    *store.Store
	strategy TriggerStrategy
	b        bindings

	recording bool
	candidate []Key
}

// NewRouter creates a router. Call Rebuild to load bindings.
func NewRouter(st *store.Store, engine Engine, keys *PressedSet, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if keys == nil {
		keys = NewPressedSet()
	}
	return &Router{
		logger:   logger,
		keys:     keys,
		engine:   engine,
		store:    st,
		strategy: LevelTrigger{},
	}
}

// Keys returns the router's pressed-key set.
func (r *Router) Keys() *PressedSet {
	return r.keys
}

// Rebuild reloads every binding from the configuration. Bindings whose keys
// cannot be parsed are skipped.
func (r *Router) Rebuild() {
	var b bindings
	var trigger string

	r.store.View(func(cfg *config.Config) {
		trigger = cfg.Hotkeys.Trigger
		b.stop = r.parse("stop", cfg.StopHotkey)

		paths := make([]string, 0, len(cfg.Files))
		for path := range cfg.Files {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if keys := r.parse(path, cfg.Files[path].Hotkey); len(keys) > 0 {
				b.files = append(b.files, fileBinding{keys: keys, path: path})
			}
		}
	})

	for _, w := range r.store.Waveforms() {
		if keys := r.parse(w.Label, w.Hotkey); len(keys) > 0 {
			b.waveforms = append(b.waveforms, waveformBinding{keys: keys, waveform: w})
		}
	}
	for _, d := range r.store.Dialogs() {
		if keys := r.parse(d.Label, d.Hotkey); len(keys) > 0 {
			b.dialogs = append(b.dialogs, dialogBinding{keys: keys, dialog: d})
		}
	}

	r.mu.Lock()
	r.b = b
	r.strategy = StrategyFor(trigger)
	r.mu.Unlock()

	r.logger.Debug("hotkey bindings rebuilt",
		"files", len(b.files), "waveforms", len(b.waveforms), "dialogs", len(b.dialogs),
		"stop", len(b.stop) > 0, "trigger", trigger)
}

func (r *Router) parse(owner string, names []string) []Key {
	if len(names) == 0 {
		return nil
	}
	keys, err := ParseKeys(names)
	if err != nil {
		r.logger.Warn("ignoring hotkey", "binding", owner, "error", err)
		return nil
	}
	return keys
}

// SetStrategy replaces the file trigger strategy.
func (r *Router) SetStrategy(s TriggerStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = s
}

// StartRecording switches the router to recording: pressed keys are collected
// into a candidate set and no binding fires.
func (r *Router) StartRecording() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
	r.candidate = nil
}

// StopRecording leaves recording mode and returns the recorded keys.
func (r *Router) StopRecording() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	out := r.candidate
	r.candidate = nil
	slices.Sort(out)
	return out
}

// Recording reports whether recording mode is active.
func (r *Router) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Candidate returns the keys recorded so far.
func (r *Router) Candidate() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.candidate)
}

// Handle applies one key event and re-evaluates every binding.
func (r *Router) Handle(ev Event) {
	r.keys.Set(ev.Key, ev.Down)

	r.mu.Lock()
	if r.recording {
		if ev.Down && !slices.Contains(r.candidate, ev.Key) {
			r.candidate = append(r.candidate, ev.Key)
		}
		r.mu.Unlock()
		r.store.RequestRedraw()
		return
	}
	b := r.b
	strategy := r.strategy
	r.mu.Unlock()

	if len(b.stop) > 0 && r.allPressed(b.stop) && !r.store.EditOnly() {
		r.logger.Debug("stop hotkey pressed")
		r.engine.StopAll()
	}

	for i, fb := range b.files {
		if strategy.ShouldFire(i, r.allPressed(fb.keys)) {
			r.engine.PlayFile(fb.path)
		}
	}

	for _, wb := range b.waveforms {
		keys := wb.keys
		if r.allPressed(keys) {
			r.engine.HoldWaveform(wb.waveform, func() bool { return r.allPressed(keys) })
		} else if wb.waveform.State().Release() {
			r.store.RequestRedraw()
		}
	}

	for _, db := range b.dialogs {
		keys := db.keys
		if r.allPressed(keys) {
			r.engine.PlayDialog(db.dialog, audio.Held, false, func() bool { return r.allPressed(keys) })
		}
	}
}

func (r *Router) allPressed(keys []Key) bool {
	return len(keys) > 0 && lo.EveryBy(keys, r.keys.Pressed)
}
