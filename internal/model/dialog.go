package model

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Dialog is a named group of files played one after another.
type Dialog struct {
	Label  string   `toml:"label" yaml:"label" validate:"required"`
	ID     *uint32  `toml:"id,omitempty" yaml:"id,omitempty"`
	Hotkey []string `toml:"hotkey,omitempty" yaml:"hotkey,omitempty"`
	Files  []string `toml:"files" yaml:"files"`
	Delay  float64  `toml:"delay" yaml:"delay" validate:"gte=0,lte=3600"` // Seconds between starts
	Random bool     `toml:"random" yaml:"random"`

	state  *PlayState
	cursor *Cursor
}

// Init attaches a fresh play state and cursor.
func (d *Dialog) Init() {
	if d.state == nil {
		d.state = NewPlayState()
	}
	if d.cursor == nil {
		d.cursor = NewCursor()
	}
}

// State returns the dialog's play state.
func (d *Dialog) State() *PlayState {
	return d.state
}

// HasID reports whether the dialog carries the given numeric id.
func (d *Dialog) HasID(id uint32) bool {
	return d.ID != nil && *d.ID == id
}

// Playable reports whether the dialog has at least one file.
func (d *Dialog) Playable() bool {
	return len(d.Files) > 0
}

// DelayDuration returns the configured delay as a time.Duration.
func (d *Dialog) DelayDuration() time.Duration {
	return time.Duration(d.Delay * float64(time.Second))
}

// NextFile returns the next file to play and advances the cursor.
// It returns false if the dialog has no files.
func (d *Dialog) NextFile() (string, bool) {
	if !d.Playable() {
		return "", false
	}
	idx := d.cursor.Pick(len(d.Files), d.Random, rand.IntN)
	return d.Files[idx], true
}

// Cursor tracks the next index of a dialog and the index played last.
type Cursor struct {
	mu   sync.Mutex
	next int
	last int
}

// NewCursor returns a cursor positioned at the first file.
func NewCursor() *Cursor {
	return &Cursor{last: -1}
}

// Pick returns the index to play out of n files.
// Sequential picks wrap modulo n. Random picks never repeat the previous
// index when n > 1; intn must return a uniform value in [0, n).
func (c *Cursor) Pick(n int, random bool, intn func(int) int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		return 0
	}
	if c.next >= n {
		c.next = 0
	}

	var idx int
	switch {
	case n == 1:
		idx = 0
	case random:
		idx = intn(n)
		for idx == c.last {
			idx = intn(n)
		}
	default:
		idx = c.next
	}

	c.last = idx
	c.next = (idx + 1) % n
	return idx
}

// Position returns the next sequential index, clamped to n.
func (c *Cursor) Position(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || c.next >= n {
		return 0
	}
	return c.next
}
