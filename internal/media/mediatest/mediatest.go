// Package mediatest writes small audio fixtures for tests.
package mediatest

import (
	"os"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/require"
)

// WriteWAV writes a silent 16-bit stereo WAV file of n samples at rate.
func WriteWAV(tb testing.TB, path string, rate beep.SampleRate, n int) {
	tb.Helper()
	WriteConstWAV(tb, path, rate, n, 0)
}

// WriteConstWAV writes a 16-bit stereo WAV file of n samples that all hold
// value on both channels.
func WriteConstWAV(tb testing.TB, path string, rate beep.SampleRate, n int, value float64) {
	tb.Helper()

	f, err := os.Create(path)
	require.NoError(tb, err)
	defer func() { _ = f.Close() }()

	left := n
	s := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left <= 0 {
			return 0, false
		}
		k := min(len(samples), left)
		for i := range k {
			samples[i] = [2]float64{value, value}
		}
		left -= k
		return k, true
	})

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	require.NoError(tb, wav.Encode(f, s, format))
}
