package audio

import (
	"math"

	"github.com/jmylchreest/soundboard/internal/model"
)

// oscillator is the runtime state of one model.Oscillator.
// Invariant: 0 <= counter < period.
type oscillator struct {
	shape   model.Shape
	period  int
	counter int
	amp     float64 // Oscillator amplitude pre-scaled by the waveform volume
}

func newOscillator(o model.Oscillator, volume float64, rate int) oscillator {
	period := 1
	if o.Frequency > 0 {
		period = max(int(math.Round(float64(rate)/o.Frequency)), 1)
	}
	counter := int(math.Round(o.Phase*float64(period))) % period
	if counter < 0 {
		counter += period
	}
	return oscillator{
		shape:   o.Shape,
		period:  period,
		counter: counter,
		amp:     o.Amplitude * volume,
	}
}

// next returns the current sample and advances the counter.
func (o *oscillator) next() float64 {
	v := o.amp * shapeValue(o.shape, float64(o.counter)/float64(o.period))
	o.counter++
	if o.counter >= o.period {
		o.counter = 0
	}
	return v
}

// shapeValue evaluates a unit-amplitude shape at x, the position within one
// period in [0, 1).
func shapeValue(shape model.Shape, x float64) float64 {
	switch shape {
	case model.ShapeSine:
		return math.Sin(2 * math.Pi * x)
	case model.ShapeSquare:
		if x > 0.5 {
			return 1
		}
		return -1
	case model.ShapeTriangle:
		switch {
		case x < 0.25:
			return 4 * x
		case x < 0.75:
			return 2 - 4*x
		default:
			return 4*x - 4
		}
	case model.ShapeSaw:
		return 2*x - 1
	default:
		return 0
	}
}

// PlayableWaveform is the mix state of one playing waveform.
type PlayableWaveform struct {
	Label string
	state *model.PlayState
	oscs  []oscillator
}

// NewPlayableWaveform prepares w for mixing at rate.
func NewPlayableWaveform(w *model.Waveform, rate int) *PlayableWaveform {
	volume := float64(w.Volume) / 100
	oscs := make([]oscillator, len(w.Oscillators))
	for i, o := range w.Oscillators {
		oscs[i] = newOscillator(o, volume, rate)
	}
	return &PlayableWaveform{
		Label: w.Label,
		state: w.State(),
		oscs:  oscs,
	}
}

// next returns the average of every oscillator's current sample.
func (pw *PlayableWaveform) next() float64 {
	if len(pw.oscs) == 0 {
		return 0
	}
	var sum float64
	for i := range pw.oscs {
		sum += pw.oscs[i].next()
	}
	return sum / float64(len(pw.oscs))
}
