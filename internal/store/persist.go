package store

import (
	"github.com/jmylchreest/soundboard/internal/config"
)

// Persist writes the configuration to disk in the background.
// The configuration is encoded under the app lock; the write happens outside
// it. Writes land in request order: an older snapshot never overwrites a newer
// one. Read-only instances never write.
func (s *Store) Persist() {
	s.mu.Lock()
	if s.editOnly || s.cfgPath == "" {
		s.mu.Unlock()
		return
	}
	data, err := s.cfg.Marshal()
	s.persistSeq++
	seq := s.persistSeq
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to encode config", "error", err)
		return
	}

	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()

		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if seq < s.written {
			return
		}
		if err := config.WriteFile(s.cfgPath, data); err != nil {
			s.logger.Warn("failed to persist config", "path", s.cfgPath, "error", err)
			return
		}
		s.written = seq
		s.logger.Debug("config persisted", "path", s.cfgPath)
	}()
}

// Flush waits for pending background writes.
func (s *Store) Flush() {
	s.persistWG.Wait()
}
