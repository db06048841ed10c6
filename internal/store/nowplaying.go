package store

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// AddNowPlaying adds an entry to the now-playing table.
func (s *Store) AddNowPlaying(np NowPlaying) {
	s.mu.Lock()
	s.nowPlaying = append(s.nowPlaying, np)
	s.mu.Unlock()
	s.redraw.Request()
}

// RemoveNowPlaying drops the entry with the given handle.
func (s *Store) RemoveNowPlaying(handle ulid.ULID) {
	s.mu.Lock()
	s.nowPlaying = slices.DeleteFunc(s.nowPlaying, func(np NowPlaying) bool {
		return np.Handle == handle
	})
	s.mu.Unlock()
	s.redraw.Request()
}

// NowPlaying returns a copy of the now-playing table, oldest first.
func (s *Store) NowPlaying() []NowPlaying {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.nowPlaying)
}
