package hotkey

import (
	"sync"

	"github.com/jmylchreest/soundboard/internal/config"
)

// TriggerStrategy decides whether a file binding fires on a key event.
// id identifies the binding; pressed says whether all its keys are held.
type TriggerStrategy interface {
	ShouldFire(id int, pressed bool) bool
	Reset()
}

// LevelTrigger fires on every event while the binding is fully pressed, so a
// held key re-fires its file on each notification (including key repeat).
type LevelTrigger struct{}

// ShouldFire implements TriggerStrategy.
func (LevelTrigger) ShouldFire(_ int, pressed bool) bool { return pressed }

// Reset implements TriggerStrategy.
func (LevelTrigger) Reset() {}

// EdgeTrigger fires once when a binding becomes fully pressed and again only
// after it was released.
type EdgeTrigger struct {
	mu   sync.Mutex
	last map[int]bool
}

// NewEdgeTrigger returns an edge-triggered strategy.
func NewEdgeTrigger() *EdgeTrigger {
	return &EdgeTrigger{last: make(map[int]bool)}
}

// ShouldFire implements TriggerStrategy.
func (e *EdgeTrigger) ShouldFire(id int, pressed bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	fire := pressed && !e.last[id]
	e.last[id] = pressed
	return fire
}

// Reset implements TriggerStrategy.
func (e *EdgeTrigger) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = make(map[int]bool)
}

// StrategyFor returns the strategy named by a config trigger value.
func StrategyFor(name string) TriggerStrategy {
	if name == config.TriggerEdge {
		return NewEdgeTrigger()
	}
	return LevelTrigger{}
}
