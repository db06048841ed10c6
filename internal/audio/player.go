package audio

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

// EditOnlyLabel is shown in the now-playing table instead of real playback
// on read-only instances.
const EditOnlyLabel = "Edit-only mode!"

// editOnlyHold is how long the edit-only placeholder stays visible.
const editOnlyHold = time.Second

// PlayableFile is one in-flight file.
type PlayableFile struct {
	ID     ulid.ULID
	Path   string
	Volume float64 // Effective gain, file volume times sink volume
	done   *model.Signal
}

// Player streams decoded files to the sink, one goroutine per play.
type Player struct {
	logger *slog.Logger
	store  *store.Store
	sink   Sink
	cache  *media.Cache
	chunk  int

	// Held from before streaming until completion in playlist mode.
	playlist sync.Mutex

	mu       sync.Mutex
	inFlight map[ulid.ULID]*PlayableFile
	epoch    uint64 // Bumped by StopAll

	wg    sync.WaitGroup
	probe func(string) (media.Info, error)
}

// NewPlayer creates a file player.
func NewPlayer(st *store.Store, sink Sink, cache *media.Cache, chunk int, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	if chunk <= 0 {
		chunk = 1600
	}
	return &Player{
		logger:   logger,
		store:    st,
		sink:     sink,
		cache:    cache,
		chunk:    chunk,
		inFlight: make(map[ulid.ULID]*PlayableFile),
		probe:    media.Probe,
	}
}

// Play starts playing path in the background and returns immediately.
// Failures are logged and otherwise ignored.
func (p *Player) Play(path string) {
	if path == "" {
		return
	}

	p.mu.Lock()
	epoch := p.epoch
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("file playback panicked", "path", path, "panic", r)
			}
		}()

		if p.store.EditOnly() {
			p.placeholder()
			return
		}
		p.play(path, epoch)
	}()
}

// placeholder shows the edit-only entry for a second without audio I/O.
func (p *Player) placeholder() {
	np := store.NowPlaying{
		Handle:    ulid.Make(),
		Label:     EditOnlyLabel,
		StartedAt: time.Now(),
		Duration:  editOnlyHold,
	}
	p.store.AddNowPlaying(np)
	time.Sleep(editOnlyHold)
	p.store.RemoveNowPlaying(np.Handle)
}

func (p *Player) play(path string, epoch uint64) {
	info, err := p.probe(path)
	if err != nil {
		p.logger.Debug("ignoring play request", "path", path, "error", err)
		return
	}

	pf := &PlayableFile{
		ID:     ulid.Make(),
		Path:   path,
		Volume: float64(p.store.FileVolume(path)) / 100 * float64(p.store.SinkVolume()) / 100,
		done:   model.NewSignal(),
	}
	if !p.register(pf, info.Duration, epoch) {
		p.logger.Debug("play request stopped before start", "path", path)
		return
	}
	defer p.unregister(pf)

	buf, err := p.cache.Get(path)
	if err != nil {
		p.logger.Warn("failed to decode file", "path", path, "error", err)
		return
	}

	if p.store.Playlist() {
		p.playlist.Lock()
		defer p.playlist.Unlock()
	}
	if pf.done.Fired() {
		return
	}

	if err := p.stream(pf, buf); err != nil {
		p.logger.Warn("file playback failed", "path", path, "error", err)
	}
}

// register records pf as in flight. It refuses when StopAll has run since
// the request was accepted.
func (p *Player) register(pf *PlayableFile, d time.Duration, epoch uint64) bool {
	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()
		return false
	}
	p.inFlight[pf.ID] = pf
	p.mu.Unlock()

	p.store.AddNowPlaying(store.NowPlaying{
		Handle:    pf.ID,
		Label:     filepath.Base(pf.Path),
		Path:      pf.Path,
		StartedAt: time.Now(),
		Duration:  d,
	})
	p.logger.Debug("file playing", "path", pf.Path, "handle", pf.ID.String(), "volume", pf.Volume)
	return true
}

func (p *Player) unregister(pf *PlayableFile) {
	pf.done.Fire()

	p.mu.Lock()
	delete(p.inFlight, pf.ID)
	p.mu.Unlock()

	p.store.RemoveNowPlaying(pf.ID)
}

// stream writes buf to a fresh sink stream, chunk by chunk, checking the
// completion signal between chunks.
func (p *Player) stream(pf *PlayableFile, buf *beep.Buffer) error {
	out, err := p.sink.Open(2)
	if err != nil {
		return err
	}

	streamer := &effects.Gain{
		Streamer: buf.Streamer(0, buf.Len()),
		Gain:     pf.Volume - 1,
	}
	frames := make([][2]float64, p.chunk)
	data := make([]byte, p.chunk*2*bytesPerSample)

	for {
		if pf.done.Fired() {
			return out.Abort()
		}
		n, ok := streamer.Stream(frames)
		if n > 0 {
			size := encodeStereo(data, frames[:n])
			if _, err := out.Write(data[:size]); err != nil {
				_ = out.Abort()
				return err
			}
		}
		if !ok {
			break
		}
	}

	closed := make(chan error, 1)
	go func() { closed <- out.Close() }()
	select {
	case err := <-closed:
		return err
	case <-pf.done.Done():
		_ = out.Abort()
		<-closed
		return nil
	}
}

// StopAll fires the completion signal of every in-flight file and cancels
// requests still being inspected. It returns how many files were stopped.
func (p *Player) StopAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	for _, pf := range p.inFlight {
		pf.done.Fire()
	}
	return len(p.inFlight)
}

// InFlight returns the number of files currently registered.
func (p *Player) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

// Wait blocks until every play started so far has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}
