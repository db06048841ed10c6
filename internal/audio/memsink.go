package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrSinkClosed is returned when writing to a closed stream.
var ErrSinkClosed = errors.New("sink stream closed")

// MemorySink records every stream in memory. With Rate set, writes block for
// the real-time duration of the samples written, like a sound server would.
type MemorySink struct {
	Rate    int   // Frames per second; 0 disables pacing
	OpenErr error // Returned by Open when set

	mu      sync.Mutex
	streams []*MemoryStream
}

// Open creates a recorded stream.
func (m *MemorySink) Open(channels int) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	s := &MemoryStream{rate: m.Rate, channels: channels, abort: make(chan struct{})}
	m.streams = append(m.streams, s)
	return s, nil
}

// Streams returns every stream opened so far.
func (m *MemorySink) Streams() []*MemoryStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MemoryStream, len(m.streams))
	copy(out, m.streams)
	return out
}

// MemoryStream is one recorded stream.
type MemoryStream struct {
	rate     int
	channels int
	abort    chan struct{}

	mu      sync.Mutex
	data    []byte
	closed  bool
	aborted bool
	failErr error
}

// Write records b, pacing if the sink has a rate.
func (s *MemoryStream) Write(b []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSinkClosed
	}
	if s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		return 0, err
	}
	s.data = append(s.data, b...)
	s.mu.Unlock()

	if s.rate > 0 && s.channels > 0 {
		frames := len(b) / (4 * s.channels)
		d := time.Duration(frames) * time.Second / time.Duration(s.rate)
		select {
		case <-time.After(d):
		case <-s.abort:
		}
	}
	return len(b), nil
}

// Close marks the stream closed.
func (s *MemoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Abort marks the stream aborted and closed.
func (s *MemoryStream) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aborted {
		s.aborted = true
		close(s.abort)
	}
	s.closed = true
	return nil
}

// Fail makes every later write return err.
func (s *MemoryStream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Bytes returns a copy of everything written.
func (s *MemoryStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Channels returns the channel count the stream was opened with.
func (s *MemoryStream) Channels() int {
	return s.channels
}

// Closed reports whether Close or Abort was called.
func (s *MemoryStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Aborted reports whether Abort was called.
func (s *MemoryStream) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}
