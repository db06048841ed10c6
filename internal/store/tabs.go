package store

import (
	"path/filepath"
	"slices"

	"github.com/jmylchreest/soundboard/internal/media"
)

// Tabs returns a copy of the tab list. File slices are replaced wholesale on
// rescan, never mutated, so sharing them is safe.
func (s *Store) Tabs() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tabs)
}

// Selected returns the index of the selected tab.
func (s *Store) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select changes the selected tab. It returns false if i is out of range.
func (s *Store) Select(i int) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.tabs) {
		s.mu.Unlock()
		return false
	}
	s.selected = i
	s.mu.Unlock()

	s.redraw.Request()
	return true
}

// SelectedTab returns the selected tab, if any.
func (s *Store) SelectedTab() (Tab, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected < 0 || s.selected >= len(s.tabs) {
		return Tab{}, 0, false
	}
	return s.tabs[s.selected], s.selected, true
}

// TabAt returns the tab at index i.
func (s *Store) TabAt(i int) (Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.tabs) {
		return Tab{}, ErrIndexOutOfRange
	}
	return s.tabs[i], nil
}

// TabIndex returns the index of the tab with the given path, or -1.
func (s *Store) TabIndex(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabIndexLocked(path)
}

func (s *Store) tabIndexLocked(path string) int {
	return slices.IndexFunc(s.tabs, func(t Tab) bool { return t.Path == path })
}

// TabIndexByName returns the index of the first tab whose directory name is
// name, or -1.
func (s *Store) TabIndexByName(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.IndexFunc(s.tabs, func(t Tab) bool { return filepath.Base(t.Path) == name })
}

// AddTab appends a tab for path and persists the tab list.
// It returns the new tab's index.
func (s *Store) AddTab(path string, files []media.File) (int, error) {
	s.mu.Lock()
	if s.tabIndexLocked(path) >= 0 {
		s.mu.Unlock()
		return 0, ErrDuplicateTab
	}
	s.tabs = append(s.tabs, Tab{Path: path, Files: files})
	s.cfg.Tabs = append(s.cfg.Tabs, path)
	idx := len(s.tabs) - 1
	s.mu.Unlock()

	s.Persist()
	s.redraw.Request()
	return idx, nil
}

// RemoveTab deletes the tab at index i and persists the tab list.
// A tab that is being rescanned cannot be removed.
func (s *Store) RemoveTab(i int) (string, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.tabs) {
		s.mu.Unlock()
		return "", ErrIndexOutOfRange
	}
	if s.scanBlocksLocked(i) {
		s.mu.Unlock()
		return "", ErrScanInProgress
	}

	path := s.tabs[i].Path
	s.tabs = slices.Delete(s.tabs, i, i+1)
	s.cfg.Tabs = slices.DeleteFunc(s.cfg.Tabs, func(p string) bool { return p == path })
	if s.selected >= len(s.tabs) {
		s.selected = max(len(s.tabs)-1, 0)
	}
	if s.scanning.Kind == ScanOne && s.scanning.Tab > i {
		s.scanning.Tab--
	}
	s.mu.Unlock()

	s.Persist()
	s.redraw.Request()
	return path, nil
}

// SetTabFiles publishes the result of a rescan. Tabs are matched by path
// because indexes may shift while a scan runs. It returns false if the tab
// no longer exists.
func (s *Store) SetTabFiles(path string, files []media.File) bool {
	s.mu.Lock()
	idx := s.tabIndexLocked(path)
	if idx >= 0 {
		s.tabs[idx].Files = files
	}
	s.mu.Unlock()

	s.redraw.Request()
	return idx >= 0
}

// BeginScan marks a rescan as running. It returns false if another rescan
// holds the gate.
func (s *Store) BeginScan(sc Scanning) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning.Kind != ScanNone {
		return false
	}
	s.scanning = sc
	return true
}

// EndScan clears the rescan gate.
func (s *Store) EndScan() {
	s.mu.Lock()
	s.scanning = Scanning{}
	s.mu.Unlock()
	s.redraw.Request()
}

// Scanning returns the current rescan gate.
func (s *Store) Scanning() Scanning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// PlayBlocked reports whether plays must be refused because the selected tab
// (or every tab) is being rescanned.
func (s *Store) PlayBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanBlocksLocked(s.selected)
}

func (s *Store) scanBlocksLocked(tab int) bool {
	switch s.scanning.Kind {
	case ScanAll:
		return true
	case ScanOne:
		return s.scanning.Tab == tab
	default:
		return false
	}
}

// HasFile reports whether any tab lists path.
func (s *Store) HasFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasFileLocked(path)
}

func (s *Store) hasFileLocked(path string) bool {
	for _, t := range s.tabs {
		if slices.ContainsFunc(t.Files, func(f media.File) bool { return f.Path == path }) {
			return true
		}
	}
	return false
}
