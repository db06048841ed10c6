// Package media probes, decodes and scans audio files.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Errors returned by Probe and Decode.
var (
	ErrUnsupported = errors.New("unsupported audio format")
	ErrNoAudio     = errors.New("no audio stream")
)

// Extensions lists the file extensions that can be decoded.
var Extensions = []string{".wav", ".mp3", ".ogg"}

// Info describes a probed audio file.
type Info struct {
	Format   beep.Format
	Samples  int
	Duration time.Duration
}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// open decodes the header of path and returns a streamer positioned at the start.
func open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode audio file: %w", err)
	}

	return streamer, format, nil
}

// Probe reports the format and duration of path without decoding samples.
// A file whose stream holds no samples yields ErrNoAudio.
func Probe(path string) (Info, error) {
	streamer, format, err := open(path)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = streamer.Close() }()

	n := streamer.Len()
	if n <= 0 || format.NumChannels == 0 {
		return Info{}, ErrNoAudio
	}

	return Info{
		Format:   format,
		Samples:  n,
		Duration: format.SampleRate.D(n),
	}, nil
}

// Decode reads the whole of path into memory at the given sample rate,
// resampling when the source rate differs.
func Decode(path string, rate beep.SampleRate) (*beep.Buffer, error) {
	streamer, format, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = streamer.Close() }()

	if streamer.Len() <= 0 {
		return nil, ErrNoAudio
	}

	var s beep.Streamer = streamer
	if format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, s)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 4})
	buffer.Append(s)

	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode audio file: %w", err)
	}
	return buffer, nil
}
