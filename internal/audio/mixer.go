package audio

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jmylchreest/soundboard/internal/model"
)

// PeakLimit is the largest absolute sample value a mixed chunk may hold.
const PeakLimit = 2.0

// Mixer sums every playing waveform into one continuous mono stream.
//
// Each tick it renders one chunk, limits it, writes it and then sleeps the
// nominal chunk duration. Pacing is open-loop: the sink buffers and paces
// actual playback, so drift under load is accepted.
type Mixer struct {
	logger    *slog.Logger
	sink      Sink
	rate      int
	chunk     int
	onFailure func(error)

	// Guards live only; the app lock is never taken while mixing.
	mu   sync.Mutex
	live map[*model.PlayState]*PlayableWaveform

	samples []float64
	data    []byte
	out     Stream
	failed  bool

	stopCh  chan struct{}
	doneCh  chan struct{}
	runMu   sync.Mutex
	running bool
}

// NewMixer creates a mixer. onFailure is called once if the sink cannot be
// opened or dies; it may be nil.
func NewMixer(sink Sink, rate, chunk int, onFailure func(error), logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mixer{
		logger:    logger,
		sink:      sink,
		rate:      rate,
		chunk:     chunk,
		onFailure: onFailure,
		live:      make(map[*model.PlayState]*PlayableWaveform),
		samples:   make([]float64, chunk),
		data:      make([]byte, chunk*bytesPerSample),
	}
}

// Add activates w and registers it for mixing. It returns false without any
// effect if w is already active or has no oscillators.
func (m *Mixer) Add(w *model.Waveform, forced bool) bool {
	_, ok := m.add(w, forced)
	return ok
}

// add is Add returning the generation of the new activation.
func (m *Mixer) add(w *model.Waveform, forced bool) (uint64, bool) {
	if !w.Playable() || w.State() == nil {
		return 0, false
	}
	gen, ok := w.State().Activate(forced)
	if !ok {
		return 0, false
	}

	pw := NewPlayableWaveform(w, m.rate)
	m.mu.Lock()
	m.live[w.State()] = pw
	m.mu.Unlock()

	m.logger.Debug("waveform started", "label", w.Label, "forced", forced)
	return gen, true
}

// Live returns how many waveforms are registered, including ones whose
// active flag was cleared since the last tick.
func (m *Mixer) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Has reports whether a waveform with the given play state is registered.
func (m *Mixer) Has(state *model.PlayState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[state]
	return ok
}

// ChunkDuration is the nominal duration of one chunk.
func (m *Mixer) ChunkDuration() time.Duration {
	return time.Duration(m.chunk) * time.Second / time.Duration(m.rate)
}

// Start opens the sink and begins the mix loop.
func (m *Mixer) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	out, err := m.sink.Open(1)
	if err != nil {
		m.fail(err)
	} else {
		m.out = out
	}

	go m.loop(ctx)
	m.logger.Debug("mixer started", "rate", m.rate, "chunk", m.chunk)
}

// Stop ends the mix loop and closes the sink.
func (m *Mixer) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.runMu.Unlock()

	<-m.doneCh
	if m.out != nil {
		_ = m.out.Abort()
	}
	m.logger.Debug("mixer stopped")
}

func (m *Mixer) loop(ctx context.Context) {
	defer close(m.doneCh)

	pause := m.ChunkDuration()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-timer.C:
		}

		m.tick()
		timer.Reset(pause)
	}
}

// tick renders one chunk and writes it to the sink.
func (m *Mixer) tick() {
	m.render(m.samples)
	normalize(m.samples)

	if m.failed || m.out == nil {
		return
	}
	n := encodeMono(m.data, m.samples)
	if _, err := m.out.Write(m.data[:n]); err != nil {
		_ = m.out.Abort()
		m.fail(err)
	}
}

// render drops inactive waveforms and sums the rest into dst.
func (m *Mixer) render(dst []float64) {
	clear(dst)

	m.mu.Lock()
	defer m.mu.Unlock()

	for state, pw := range m.live {
		if !state.Active() {
			delete(m.live, state)
			m.logger.Debug("waveform stopped", "label", pw.Label)
		}
	}
	for _, pw := range m.live {
		for i := range dst {
			dst[i] += pw.next()
		}
	}
}

func (m *Mixer) fail(err error) {
	if m.failed {
		return
	}
	m.failed = true
	m.logger.Error("audio sink unavailable, waveforms are silent", "error", err)
	if m.onFailure != nil {
		m.onFailure(err)
	}
}

// normalize scales samples so that the peak absolute value does not exceed
// PeakLimit. This is block limiting: the whole chunk is scaled by one factor.
func normalize(samples []float64) {
	var peak float64
	for _, v := range samples {
		peak = max(peak, math.Abs(v))
	}
	if peak <= PeakLimit {
		return
	}
	scale := peak / PeakLimit
	for i := range samples {
		samples[i] /= scale
	}
}
