// Package model defines the soundboard entities shared by the audio engine,
// the hotkey router and the control socket.
package model

import (
	"fmt"
	"strings"
)

// Shape is an oscillator wave shape.
type Shape string

// Supported oscillator shapes.
const (
	ShapeSine     Shape = "sine"
	ShapeSquare   Shape = "square"
	ShapeTriangle Shape = "triangle"
	ShapeSaw      Shape = "saw"
)

// ValidShapes returns all supported shapes.
func ValidShapes() []Shape {
	return []Shape{ShapeSine, ShapeSquare, ShapeTriangle, ShapeSaw}
}

// ParseShape parses a shape name, case-insensitively.
func ParseShape(s string) (Shape, error) {
	for _, shape := range ValidShapes() {
		if strings.EqualFold(s, string(shape)) {
			return shape, nil
		}
	}
	return "", fmt.Errorf("invalid shape %q, must be one of: %v", s, ValidShapes())
}

// Oscillator is one tone within a waveform.
type Oscillator struct {
	Shape     Shape   `toml:"shape" yaml:"shape" validate:"oneof=sine square triangle saw"`
	Frequency float64 `toml:"frequency" yaml:"frequency" validate:"gt=0,lte=24000"`
	Phase     float64 `toml:"phase" yaml:"phase" validate:"gte=0,lte=1"` // Fraction of a period
	Amplitude float64 `toml:"amplitude" yaml:"amplitude" validate:"gte=0,lte=1"`
}

// Waveform is a user-defined tone or stack of tones.
type Waveform struct {
	Label       string       `toml:"label" yaml:"label" validate:"required"`
	ID          *uint32      `toml:"id,omitempty" yaml:"id,omitempty"`
	Hotkey      []string     `toml:"hotkey,omitempty" yaml:"hotkey,omitempty"`
	Volume      int          `toml:"volume" yaml:"volume" validate:"gte=0,lte=100"`
	Oscillators []Oscillator `toml:"oscillators" yaml:"oscillators" validate:"dive"`

	state *PlayState
}

// Init attaches a fresh play state. It must be called once after loading,
// before the waveform is shared with other goroutines.
func (w *Waveform) Init() {
	if w.state == nil {
		w.state = NewPlayState()
	}
}

// State returns the waveform's play state.
func (w *Waveform) State() *PlayState {
	return w.state
}

// HasID reports whether the waveform carries the given numeric id.
func (w *Waveform) HasID(id uint32) bool {
	return w.ID != nil && *w.ID == id
}

// Playable reports whether the waveform has anything to synthesize.
func (w *Waveform) Playable() bool {
	return len(w.Oscillators) > 0
}
