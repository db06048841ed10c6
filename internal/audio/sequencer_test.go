package audio

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

type recordingPlayer struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingPlayer) Play(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recordingPlayer) played() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func testDialog(delay float64, random bool, files ...string) *model.Dialog {
	d := &model.Dialog{Label: "talk", Files: files, Delay: delay, Random: random}
	d.Init()
	return d
}

func newTestSequencer(autoStop time.Duration) (*Sequencer, *recordingPlayer) {
	rec := &recordingPlayer{}
	st := store.New(config.DefaultConfig(), "", false, nil)
	return NewSequencer(rec, st, autoStop, 10*time.Millisecond, nil), rec
}

func TestSequencer_AutoStopBudget(t *testing.T) {
	seq, rec := newTestSequencer(100 * time.Millisecond)
	d := testDialog(0.03, false, "a", "b", "c")

	require.True(t, seq.Play(d, AutoStop, true, nil))
	seq.Wait()

	played := rec.played()
	assert.GreaterOrEqual(t, len(played), 3)
	assert.LessOrEqual(t, len(played), 5)
	assert.Equal(t, []string{"a", "b", "c"}, played[:3], "sequential rotation")
	assert.False(t, d.State().Active(), "run clears the play state")
}

func TestSequencer_IgnoresActiveDialog(t *testing.T) {
	seq, rec := newTestSequencer(50 * time.Millisecond)
	d := testDialog(0.02, false, "a")

	require.True(t, seq.Play(d, AutoStop, false, nil))
	assert.False(t, seq.Play(d, AutoStop, false, nil), "second start while active is a no-op")
	seq.Wait()

	assert.NotEmpty(t, rec.played())
	assert.True(t, seq.Play(d, AutoStop, false, nil), "playable again after the run ended")
	seq.Wait()
}

func TestSequencer_EmptyDialogIsNotPlayable(t *testing.T) {
	seq, _ := newTestSequencer(time.Second)
	d := testDialog(0, false)

	assert.False(t, seq.Play(d, Held, true, nil))
	assert.False(t, d.State().Active())
}

func TestSequencer_HeldWhileKeysDown(t *testing.T) {
	seq, rec := newTestSequencer(time.Second)
	d := testDialog(0.02, false, "a", "b")

	var held atomic.Bool
	held.Store(true)
	require.True(t, seq.Play(d, Held, false, held.Load))

	require.Eventually(t, func() bool { return len(rec.played()) >= 4 }, time.Second, 5*time.Millisecond)
	held.Store(false)
	seq.Wait()

	n := len(rec.played())
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, len(rec.played()), "no plays after release")
	assert.False(t, d.State().Active())
}

func TestSequencer_HeldForcedIgnoresKeys(t *testing.T) {
	seq, rec := newTestSequencer(time.Second)
	d := testDialog(0.01, false, "a")

	require.True(t, seq.Play(d, Held, true, func() bool { return false }))
	require.Eventually(t, func() bool { return len(rec.played()) >= 3 }, time.Second, 5*time.Millisecond)

	d.State().Clear()
	seq.Wait()
	assert.False(t, d.State().Active())
}

func TestSequencer_RestartAfterStopRunsOnce(t *testing.T) {
	seq, rec := newTestSequencer(time.Minute)
	d := testDialog(0.1, false, "a", "b")

	require.True(t, seq.Play(d, Held, true, nil))
	require.Eventually(t, func() bool { return len(rec.played()) >= 1 }, time.Second, time.Millisecond)

	// Restart while the stopped run is still sleeping between files.
	d.State().Clear()
	require.True(t, seq.Play(d, Held, true, nil))

	time.Sleep(550 * time.Millisecond)
	d.State().Clear()
	seq.Wait()

	// One run plays about six files in that window; two would play twelve.
	assert.LessOrEqual(t, len(rec.played()), 9)
	assert.False(t, d.State().Active())
}

func TestSequencer_StaleRunDoesNotClearRestart(t *testing.T) {
	seq, rec := newTestSequencer(time.Second)
	d := testDialog(0.1, false, "a")

	// Unforced with no keys held: the run stops after its first file.
	require.True(t, seq.Play(d, Held, false, func() bool { return false }))
	require.Eventually(t, func() bool { return len(rec.played()) >= 1 }, time.Second, time.Millisecond)

	d.State().Clear()
	require.True(t, seq.Play(d, AutoStop, false, nil))

	time.Sleep(250 * time.Millisecond)
	assert.True(t, d.State().Active(), "restarted run still owns the dialog")

	d.State().Clear()
	seq.Wait()
}

func TestSequencer_RandomNeverRepeats(t *testing.T) {
	seq, rec := newTestSequencer(300 * time.Millisecond)
	d := testDialog(0, true, "a", "b", "c")

	require.True(t, seq.Play(d, AutoStop, false, nil))
	seq.Wait()

	played := rec.played()
	require.Greater(t, len(played), 2)
	for i := 1; i < len(played); i++ {
		assert.NotEqual(t, played[i-1], played[i])
	}
}
