package audio

import (
	"encoding/binary"
	"math"
)

// bytesPerSample is the size of one float32 sample.
const bytesPerSample = 4

// encodeMono writes samples as float32 little-endian into dst and returns the
// number of bytes written. dst must hold 4*len(samples) bytes.
func encodeMono(dst []byte, samples []float64) int {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(float32(v)))
	}
	return len(samples) * bytesPerSample
}

// encodeStereo writes interleaved stereo frames as float32 little-endian.
// dst must hold 8*len(frames) bytes.
func encodeStereo(dst []byte, frames [][2]float64) int {
	for i, f := range frames {
		off := i * 2 * bytesPerSample
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(dst[off+bytesPerSample:], math.Float32bits(float32(f[1])))
	}
	return len(frames) * 2 * bytesPerSample
}
