// Package store holds the process-wide application state shared by the audio
// engine, the hotkey router, the control socket and the TUI.
//
// Every method takes the app lock only for as long as it takes to read or
// copy state. No method performs blocking I/O under the lock.
package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/model"
)

// ScanKind says which tabs are being rescanned.
type ScanKind int

const (
	// ScanNone means no rescan is running.
	ScanNone ScanKind = iota
	// ScanAll means every tab is being rescanned.
	ScanAll
	// ScanOne means the tab at Scanning.Tab is being rescanned.
	ScanOne
)

// Scanning gates plays while tabs are rescanned.
type Scanning struct {
	Kind ScanKind
	Tab  int
}

// Tab is one scanned directory.
type Tab struct {
	Path  string
	Files []media.File
}

// NowPlaying is one entry of the UI-facing "now playing" table.
type NowPlaying struct {
	Handle    ulid.ULID
	Label     string
	Path      string
	StartedAt time.Time
	Duration  time.Duration
}

// Store is the shared application state.
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger

	cfg      *config.Config
	cfgPath  string
	editOnly bool

	tabs     []Tab
	selected int
	scanning Scanning

	nowPlaying []NowPlaying

	redraw *Redraw

	persistSeq uint64 // guarded by mu

	persistMu sync.Mutex
	written   uint64 // guarded by persistMu
	persistWG sync.WaitGroup
}

// New creates a store around cfg. cfgPath is where mutations are persisted;
// an empty path disables persistence.
func New(cfg *config.Config, cfgPath string, editOnly bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Store{
		logger:   logger,
		cfg:      cfg,
		cfgPath:  cfgPath,
		editOnly: editOnly,
		redraw:   NewRedraw(),
	}
	s.tabs = tabsFromConfig(cfg)
	return s
}

func tabsFromConfig(cfg *config.Config) []Tab {
	tabs := make([]Tab, len(cfg.Tabs))
	for i, p := range cfg.Tabs {
		tabs[i] = Tab{Path: p}
	}
	return tabs
}

// Redraw returns the redraw signal.
func (s *Store) Redraw() *Redraw {
	return s.redraw
}

// RequestRedraw is shorthand for Redraw().Request().
func (s *Store) RequestRedraw() {
	s.redraw.Request()
}

// EditOnly reports whether this instance is read-only.
func (s *Store) EditOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editOnly
}

// SetEditOnly switches read-only mode.
func (s *Store) SetEditOnly(v bool) {
	s.mu.Lock()
	s.editOnly = v
	s.mu.Unlock()
	s.redraw.Request()
}

// View runs fn with the configuration under the app lock.
// fn must not block or retain cfg.
func (s *Store) View(fn func(cfg *config.Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}

// Playlist reports whether file playback is serialized.
func (s *Store) Playlist() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Playlist
}

// SinkVolume returns the global sink volume in percent (0-200).
func (s *Store) SinkVolume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Volume
}

// FileVolume returns the configured volume of path in percent (0-100).
func (s *Store) FileVolume(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.FileVolume(path)
}

// SetSinkVolume sets the global sink volume, clamped to 0-200, and persists.
func (s *Store) SetSinkVolume(v int) int {
	v = clamp(v, 0, config.MaxSinkVolume)
	s.mu.Lock()
	s.cfg.Volume = v
	s.mu.Unlock()

	s.Persist()
	s.redraw.Request()
	return v
}

// SetFileVolume sets the volume of a known file, clamped to 0-100, and
// persists. It returns ErrFileNotFound if no tab lists the file and the
// configuration has no entry for it.
func (s *Store) SetFileVolume(path string, v int) (int, error) {
	v = clamp(v, 0, config.MaxFileVolume)

	s.mu.Lock()
	fc, ok := s.cfg.Files[path]
	if !ok && !s.hasFileLocked(path) {
		s.mu.Unlock()
		return 0, ErrFileNotFound
	}
	fc.Volume = &v
	s.cfg.Files[path] = fc
	s.mu.Unlock()

	s.Persist()
	s.redraw.Request()
	return v, nil
}

// FileHotkey returns the key names bound to path.
func (s *Store) FileHotkey(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cfg.Files[path].Hotkey)
}

// SetFileHotkey binds keys to a known file and persists. Empty keys clear
// the binding.
func (s *Store) SetFileHotkey(path string, keys []string) error {
	s.mu.Lock()
	fc, ok := s.cfg.Files[path]
	if !ok && !s.hasFileLocked(path) {
		s.mu.Unlock()
		return ErrFileNotFound
	}
	fc.Hotkey = keys
	s.cfg.Files[path] = fc
	s.mu.Unlock()

	s.Persist()
	s.redraw.Request()
	return nil
}

// FileByID resolves a numeric file id to its path.
func (s *Store) FileByID(id uint32) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, fc := range s.cfg.Files {
		if fc.ID != nil && *fc.ID == id {
			return path, true
		}
	}
	return "", false
}

// Waveforms returns every configured waveform.
// Waveform values are not mutated after load, so the pointers may be read
// without the app lock; a reload swaps in new ones.
func (s *Store) Waveforms() []*model.Waveform {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Waveform, len(s.cfg.Waveforms))
	for i := range s.cfg.Waveforms {
		out[i] = &s.cfg.Waveforms[i]
	}
	return out
}

// Dialogs returns every configured dialog.
func (s *Store) Dialogs() []*model.Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Dialog, len(s.cfg.Dialogs))
	for i := range s.cfg.Dialogs {
		out[i] = &s.cfg.Dialogs[i]
	}
	return out
}

// WaveformByID finds the waveform with the given id.
func (s *Store) WaveformByID(id uint32) (*model.Waveform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cfg.Waveforms {
		if s.cfg.Waveforms[i].HasID(id) {
			return &s.cfg.Waveforms[i], true
		}
	}
	return nil, false
}

// DialogByID finds the dialog with the given id.
func (s *Store) DialogByID(id uint32) (*model.Dialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cfg.Dialogs {
		if s.cfg.Dialogs[i].HasID(id) {
			return &s.cfg.Dialogs[i], true
		}
	}
	return nil, false
}

// ReplaceConfig swaps in a freshly loaded configuration and resets the tab
// list to its tabs, unscanned. It returns the previous configuration so the
// caller can stop entities that belonged to it.
func (s *Store) ReplaceConfig(cfg *config.Config) *config.Config {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.tabs = tabsFromConfig(cfg)
	if s.selected >= len(s.tabs) {
		s.selected = max(len(s.tabs)-1, 0)
	}
	s.mu.Unlock()

	s.redraw.Request()
	return old
}

// ConfigPath returns where the configuration is persisted.
func (s *Store) ConfigPath() string {
	return s.cfgPath
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// Errors
var (
	ErrFileNotFound    = storeError("file not found")
	ErrTabNotFound     = storeError("tab not found")
	ErrDuplicateTab    = storeError("tab already exists")
	ErrIndexOutOfRange = storeError("tab index out of range")
	ErrScanInProgress  = storeError("tab is being scanned")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
