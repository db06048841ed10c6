package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/soundboard/internal/audio"
	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/control"
	"github.com/jmylchreest/soundboard/internal/dbus"
	"github.com/jmylchreest/soundboard/internal/media/mediatest"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

type recorder struct {
	mu   sync.Mutex
	sent []*dbus.Notification
}

func (r *recorder) send(n *dbus.Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return uint32(len(r.sent)), nil
}

func (r *recorder) summaries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Summary
	}
	return out
}

type testInstance struct {
	*Instance
	sink   *audio.MemorySink
	notes  *recorder
	client *control.Client
	dir    string
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	id := uint32(5)
	cfg.Waveforms = []model.Waveform{{
		Label:  "tone",
		ID:     &id,
		Volume: 100,
		Oscillators: []model.Oscillator{
			{Shape: model.ShapeSine, Frequency: 440, Amplitude: 1},
		},
	}}
	cfg.InitRuntime()
	return cfg
}

func newTestInstance(t *testing.T, cfg *config.Config) *testInstance {
	t.Helper()
	dir := t.TempDir()
	if cfg == nil {
		cfg = testConfig()
	}

	ti := &testInstance{
		sink:  &audio.MemorySink{Rate: 48000},
		notes: &recorder{},
		dir:   dir,
	}
	inst, err := New(cfg, Options{
		ConfigPath:      filepath.Join(dir, "config.toml"),
		SocketPath:      filepath.Join(dir, "sb.sock"),
		Sink:            ti.sink,
		Notify:          ti.notes.send,
		DisableHotkeys:  true,
		DisableWatchers: true,
	}, nil)
	require.NoError(t, err)
	ti.Instance = inst
	ti.client = control.NewClient(inst.SocketPath())

	ctx, cancel := context.WithCancel(context.Background())
	inst.Start(ctx)
	t.Cleanup(func() {
		cancel()
		inst.Stop()
	})
	waitIdle(t, inst.Store())
	return ti
}

func waitIdle(t *testing.T, st *store.Store) {
	t.Helper()
	require.Eventually(t, func() bool {
		return st.Scanning().Kind == store.ScanNone
	}, 2*time.Second, 5*time.Millisecond)
}

// soundDir writes n WAV files of the given length into a fresh directory and
// returns the directory as the instance will resolve it.
func soundDir(t *testing.T, n, frames int) (string, []string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, string(rune('a'+i))+".wav")
		mediatest.WriteWAV(t, paths[i], 48000, frames)
	}
	return dir, paths
}

func nowPlayingPaths(st *store.Store) []string {
	var out []string
	for _, np := range st.NowPlaying() {
		out = append(out, np.Path)
	}
	return out
}

func TestScenario_AddTabThenPlay(t *testing.T) {
	ti := newTestInstance(t, nil)
	dir, paths := soundDir(t, 3, 24000)

	resp, err := ti.client.AddTab(dir)
	require.NoError(t, err)
	assert.Equal(t, control.StatusOK, resp.Status)
	assert.Equal(t, dir, resp.Text())

	tab, err := ti.Store().TabAt(0)
	require.NoError(t, err)
	assert.Len(t, tab.Files, 3)

	resp, err = ti.client.Play(paths[1])
	require.NoError(t, err)
	assert.Equal(t, control.StatusOK, resp.Status)
	assert.Equal(t, paths[1], resp.Text())

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{paths[1]}, nowPlayingPaths(ti.Store()))
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return len(ti.Store().NowPlaying()) == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestScenario_PlayWaveIDTwice(t *testing.T) {
	ti := newTestInstance(t, nil)

	for range 2 {
		resp, err := ti.client.PlayWaveID(5)
		require.NoError(t, err)
		assert.Equal(t, control.StatusOK, resp.Status)
		assert.Equal(t, "tone", resp.Text())
	}

	mixer := ti.Manager().Mixer()
	assert.Equal(t, 1, mixer.Live())
	for range 5 {
		time.Sleep(10 * time.Millisecond)
		assert.LessOrEqual(t, mixer.Live(), 1)
	}

	resp, err := ti.client.StopWaveID(5)
	require.NoError(t, err)
	assert.Equal(t, control.StatusOK, resp.Status)
	assert.Eventually(t, func() bool { return mixer.Live() == 0 }, time.Second, 5*time.Millisecond)
}

func TestScenario_StopEverything(t *testing.T) {
	ti := newTestInstance(t, nil)
	dir, paths := soundDir(t, 2, 96000)
	_, err := ti.client.AddTab(dir)
	require.NoError(t, err)

	for _, p := range paths {
		resp, err := ti.client.Play(p)
		require.NoError(t, err)
		require.Equal(t, control.StatusOK, resp.Status)
	}
	resp, err := ti.client.PlayWaveID(5)
	require.NoError(t, err)
	require.Equal(t, control.StatusOK, resp.Status)

	player := ti.Manager().Player()
	require.Eventually(t, func() bool { return player.InFlight() == 2 }, time.Second, 5*time.Millisecond)

	resp, err = ti.client.Stop()
	require.NoError(t, err)
	assert.Equal(t, control.StatusOK, resp.Status)

	w := ti.Store().Waveforms()[0]
	assert.False(t, w.State().Active())
	assert.Eventually(t, func() bool {
		return player.InFlight() == 0 && len(ti.Store().NowPlaying()) == 0 && ti.Manager().Mixer().Live() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestScenario_Exit(t *testing.T) {
	ti := newTestInstance(t, nil)

	require.NoError(t, ti.client.Exit())

	select {
	case <-ti.Exited():
	case <-time.After(2 * time.Second):
		t.Fatal("exit not signalled")
	}
	require.Eventually(t, func() bool {
		_, err := os.Stat(ti.SocketPath())
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestPlayID(t *testing.T) {
	cfg := testConfig()
	dir, paths := soundDir(t, 1, 24000)
	id := uint32(9)
	cfg.Tabs = []string{dir}
	cfg.Files[paths[0]] = config.FileConfig{ID: &id}
	dialogID := uint32(12)
	cfg.Dialogs = []model.Dialog{{Label: "talk", ID: &dialogID, Files: paths, Delay: 0.05}}
	cfg.InitRuntime()
	ti := newTestInstance(t, cfg)

	t.Run("unknown id", func(t *testing.T) {
		status, label := ti.PlayID(404)
		assert.Equal(t, control.IDNotFound, status)
		assert.Empty(t, label)
		assert.Equal(t, 0, ti.Manager().Player().InFlight())
		assert.Empty(t, ti.Store().NowPlaying())
	})

	t.Run("file id", func(t *testing.T) {
		status, label := ti.PlayID(9)
		assert.Equal(t, control.StatusOK, status)
		assert.Equal(t, "a.wav", label)
	})

	t.Run("dialog id", func(t *testing.T) {
		status, label := ti.PlayID(12)
		assert.Equal(t, control.StatusOK, status)
		assert.Equal(t, "talk", label)
		assert.True(t, ti.Store().Dialogs()[0].State().Active())
	})

	t.Run("unknown wave id", func(t *testing.T) {
		status, _ := ti.PlayWaveID(1)
		assert.Equal(t, control.IDNotFound, status)
		status, _ = ti.StopWaveID(1)
		assert.Equal(t, control.IDNotFound, status)
		assert.Equal(t, 0, ti.Manager().Mixer().Live())
	})
}

func TestSetVolume(t *testing.T) {
	ti := newTestInstance(t, nil)
	dir, paths := soundDir(t, 1, 4800)
	status, _ := ti.AddTab(dir)
	require.Equal(t, control.StatusOK, status)
	file := paths[0]

	tests := []struct {
		name   string
		req    control.VolumeRequest
		status control.Status
		want   uint32
		sink   int
		file   int
	}{
		{"sink absolute", control.VolumeRequest{Value: 150}, control.StatusOK, 150, 150, 100},
		{"sink increment clamps high", control.VolumeRequest{Value: 100, Increment: true}, control.StatusOK, 200, 200, 100},
		{"sink increment clamps low", control.VolumeRequest{Value: -300, Increment: true}, control.StatusOK, 0, 0, 100},
		{"sink negative absolute rejected", control.VolumeRequest{Value: -5}, control.VolumeInvalid, 0, 0, 100},
		{"sink absolute clamps", control.VolumeRequest{Value: 999}, control.StatusOK, 200, 200, 100},
		{"file increment clamps high", control.VolumeRequest{Value: 50, Increment: true, Target: control.TargetFile, Path: file}, control.StatusOK, 100, 200, 100},
		{"file absolute", control.VolumeRequest{Value: 40, Target: control.TargetFile, Path: file}, control.StatusOK, 40, 200, 40},
		{"file increment clamps low", control.VolumeRequest{Value: -60, Increment: true, Target: control.TargetFile, Path: file}, control.StatusOK, 0, 200, 0},
		{"file negative absolute rejected", control.VolumeRequest{Value: -1, Target: control.TargetFile, Path: file}, control.VolumeInvalid, 0, 200, 0},
		{"unknown file", control.VolumeRequest{Value: 10, Target: control.TargetFile, Path: "/no/such.wav"}, control.VolumeFileNotFound, 0, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, v := ti.SetVolume(tt.req)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.sink, ti.Store().SinkVolume())
			assert.Equal(t, tt.file, ti.Store().FileVolume(file))
		})
	}
}

func TestTabCommands(t *testing.T) {
	ti := newTestInstance(t, nil)
	dir, _ := soundDir(t, 2, 4800)
	other, _ := soundDir(t, 1, 4800)

	t.Run("add-tab errors", func(t *testing.T) {
		status, _ := ti.AddTab("")
		assert.Equal(t, control.AddTabEmpty, status)

		status, _ = ti.AddTab(filepath.Join(dir, "missing"))
		assert.Equal(t, control.AddTabBadPath, status)

		status, _ = ti.AddTab(filepath.Join(dir, "a.wav"))
		assert.Equal(t, control.AddTabBadPath, status)
	})

	status, _ := ti.AddTab(dir)
	require.Equal(t, control.StatusOK, status)
	status, _ = ti.AddTab(other)
	require.Equal(t, control.StatusOK, status)

	t.Run("duplicate", func(t *testing.T) {
		status, path := ti.AddTab(dir)
		assert.Equal(t, control.AddTabDuplicate, status)
		assert.Equal(t, dir, path)
	})

	t.Run("selector errors", func(t *testing.T) {
		status, _ := ti.DeleteTab(control.Selector{Kind: control.SelectIndex, Index: 7})
		assert.Equal(t, control.TabIndexRange, status)

		status, _ = ti.DeleteTab(control.Selector{Kind: control.SelectName, Value: "nope"})
		assert.Equal(t, control.TabNotFound, status)

		status, _ = ti.ReloadTab(control.Selector{Kind: control.SelectPath})
		assert.Equal(t, control.TabBadPath, status)
	})

	t.Run("conflict while scanning", func(t *testing.T) {
		require.True(t, ti.Store().BeginScan(store.Scanning{Kind: store.ScanOne, Tab: 0}))
		status, path := ti.DeleteTab(control.Selector{Kind: control.SelectIndex, Index: 0})
		assert.Equal(t, control.TabConflict, status)
		assert.Equal(t, dir, path)

		status, _ = ti.ReloadTab(control.Selector{Kind: control.SelectPath, Value: dir})
		assert.Equal(t, control.TabConflict, status)
		ti.Store().EndScan()
	})

	t.Run("reload picks up new files", func(t *testing.T) {
		mediatest.WriteWAV(t, filepath.Join(dir, "z.wav"), 48000, 4800)
		status, path := ti.ReloadTab(control.Selector{Kind: control.SelectName, Value: filepath.Base(dir)})
		assert.Equal(t, control.StatusOK, status)
		assert.Equal(t, dir, path)

		tab, err := ti.Store().TabAt(0)
		require.NoError(t, err)
		assert.Len(t, tab.Files, 3)
	})

	t.Run("delete", func(t *testing.T) {
		status, path := ti.DeleteTab(control.Selector{Kind: control.SelectPath, Value: other})
		assert.Equal(t, control.StatusOK, status)
		assert.Equal(t, other, path)

		status, path = ti.DeleteTab(control.Selector{Kind: control.SelectCurrent})
		assert.Equal(t, control.StatusOK, status)
		assert.Equal(t, dir, path)
		assert.Empty(t, ti.Store().Tabs())

		status, _ = ti.DeleteTab(control.Selector{Kind: control.SelectCurrent})
		assert.Equal(t, control.TabNotFound, status)
	})

	t.Run("persisted", func(t *testing.T) {
		ti.Store().Flush()
		cfg, err := config.LoadConfig(filepath.Join(ti.dir, "config.toml"))
		require.NoError(t, err)
		assert.Empty(t, cfg.Tabs)
	})
}

func TestPlay_Empty(t *testing.T) {
	ti := newTestInstance(t, nil)
	status, _ := ti.Play("")
	assert.Equal(t, control.PlayEmpty, status)
}

func TestEditOnlyFallback(t *testing.T) {
	first := newTestInstance(t, nil)
	assert.False(t, first.Store().EditOnly())

	notes := &recorder{}
	second, err := New(testConfig(), Options{
		SocketPath:      first.SocketPath(),
		Sink:            &audio.MemorySink{},
		Notify:          notes.send,
		DisableHotkeys:  true,
		DisableWatchers: true,
	}, nil)
	require.NoError(t, err)
	second.Start(context.Background())
	t.Cleanup(second.Stop)

	assert.True(t, second.Store().EditOnly())
	assert.Nil(t, second.Exited())
	assert.Equal(t, []string{"Edit-only Mode"}, notes.summaries())
	assert.Equal(t, control.StatusOKEditOnly, second.StopAll())

	// The first instance still owns the socket.
	resp, err := first.client.Stop()
	require.NoError(t, err)
	assert.Equal(t, control.StatusOK, resp.Status)
}

func TestReloadConfig(t *testing.T) {
	ti := newTestInstance(t, nil)
	path := filepath.Join(ti.dir, "config.toml")

	w := ti.Store().Waveforms()[0]
	require.True(t, ti.Manager().StartWaveform(w))

	cfg := config.DefaultConfig()
	cfg.Volume = 42
	require.NoError(t, cfg.Save(path))

	assert.Equal(t, control.StatusOK, ti.ReloadConfig())
	assert.Equal(t, 42, ti.Store().SinkVolume())
	assert.Empty(t, ti.Store().Waveforms())
	assert.False(t, w.State().Active(), "entities of the old config are stopped")

	require.NoError(t, os.WriteFile(path, []byte("volume = 900\n"), 0o644))
	assert.Equal(t, control.ReloadFailed, ti.ReloadConfig())
	assert.Equal(t, 42, ti.Store().SinkVolume())
	assert.Contains(t, ti.notes.summaries(), "Configuration Error")
}

func TestConfigFileChange_IgnoresEcho(t *testing.T) {
	ti := newTestInstance(t, nil)
	w := ti.Store().Waveforms()[0]
	require.True(t, ti.Manager().StartWaveform(w))

	var same *config.Config
	ti.Store().View(func(cfg *config.Config) {
		data, err := cfg.Marshal()
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "echo.toml")
		require.NoError(t, config.WriteFile(path, data))
		same, err = config.LoadConfig(path)
		require.NoError(t, err)
	})

	ti.onConfigFileChanged(same)
	assert.True(t, w.State().Active())
	assert.Empty(t, ti.notes.summaries())

	changed := testConfig()
	changed.Playlist = true
	ti.onConfigFileChanged(changed)
	assert.False(t, w.State().Active())
	assert.True(t, ti.Store().Playlist())
	assert.Equal(t, []string{"Configuration Reloaded"}, ti.notes.summaries())
}
