// Package hotkey routes system-wide key events to playback actions.
package hotkey

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Key is a Linux evdev key code.
type Key uint16

// Event is one key state change.
type Event struct {
	Key  Key
	Down bool
}

// Keys the terminal UI uses to confirm a recording.
const (
	KeyEnter   Key = 28
	KeyKPEnter Key = 96
)

var keyNames = map[Key]string{
	1: "Escape", 2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "Minus", 13: "Equal", 14: "Backspace", 15: "Tab",
	16: "Q", 17: "W", 18: "E", 19: "R", 20: "T", 21: "Y", 22: "U", 23: "I", 24: "O", 25: "P",
	26: "LeftBrace", 27: "RightBrace", 28: "Enter", 29: "LeftCtrl",
	30: "A", 31: "S", 32: "D", 33: "F", 34: "G", 35: "H", 36: "J", 37: "K", 38: "L",
	39: "Semicolon", 40: "Apostrophe", 41: "Grave", 42: "LeftShift", 43: "Backslash",
	44: "Z", 45: "X", 46: "C", 47: "V", 48: "B", 49: "N", 50: "M",
	51: "Comma", 52: "Dot", 53: "Slash", 54: "RightShift", 55: "KPAsterisk", 56: "LeftAlt",
	57: "Space", 58: "CapsLock",
	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5", 64: "F6", 65: "F7", 66: "F8", 67: "F9", 68: "F10",
	69: "NumLock", 70: "ScrollLock",
	71: "KP7", 72: "KP8", 73: "KP9", 74: "KPMinus", 75: "KP4", 76: "KP5", 77: "KP6", 78: "KPPlus",
	79: "KP1", 80: "KP2", 81: "KP3", 82: "KP0", 83: "KPDot",
	87: "F11", 88: "F12", 96: "KPEnter", 97: "RightCtrl", 98: "KPSlash", 99: "SysRq", 100: "RightAlt",
	102: "Home", 103: "Up", 104: "PageUp", 105: "Left", 106: "Right", 107: "End", 108: "Down",
	109: "PageDown", 110: "Insert", 111: "Delete", 119: "Pause", 125: "LeftMeta", 126: "RightMeta",
}

var keyCodes = func() map[string]Key {
	m := make(map[string]Key, len(keyNames))
	for k, name := range keyNames {
		m[strings.ToLower(name)] = k
	}
	return m
}()

// String returns the key's name, or its numeric code if it has none.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return strconv.Itoa(int(k))
}

// ParseKey parses a key name such as "LeftCtrl", "KEY_A", "a" or a numeric
// evdev code.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "key_")
	if k, ok := keyCodes[name]; ok {
		return k, nil
	}
	if n, err := strconv.ParseUint(name, 10, 16); err == nil && len(name) > 1 {
		return Key(n), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// ParseKeys parses a list of key names into a set, dropping duplicates.
func ParseKeys(names []string) ([]Key, error) {
	keys := make([]Key, 0, len(names))
	for _, n := range names {
		k, err := ParseKey(n)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// KeyNames formats keys for storing in the configuration.
func KeyNames(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// KeyState answers whether a key is currently held.
type KeyState interface {
	Pressed(k Key) bool
}

// PressedSet tracks which keys are down.
type PressedSet struct {
	mu   sync.RWMutex
	down map[Key]bool
}

// NewPressedSet returns an empty set.
func NewPressedSet() *PressedSet {
	return &PressedSet{down: make(map[Key]bool)}
}

// Set records a key state change.
func (p *PressedSet) Set(k Key, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if down {
		p.down[k] = true
	} else {
		delete(p.down, k)
	}
}

// Pressed reports whether k is held.
func (p *PressedSet) Pressed(k Key) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.down[k]
}

// Held returns the held keys in ascending order.
func (p *PressedSet) Held() []Key {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Key, 0, len(p.down))
	for k := range p.down {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
