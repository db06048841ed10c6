//go:build linux

package hotkey

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rawEvent(typ, code uint16, value int32) []byte {
	raw := make([]byte, inputEventSize)
	tail := raw[inputEventSize-8:]
	binary.NativeEndian.PutUint16(tail[0:2], typ)
	binary.NativeEndian.PutUint16(tail[2:4], code)
	binary.NativeEndian.PutUint32(tail[4:8], uint32(value))
	return raw
}

func TestDecodeInputEvent(t *testing.T) {
	ev, ok := decodeInputEvent(rawEvent(evKey, 30, 1))
	assert.True(t, ok)
	assert.Equal(t, Event{Key: 30, Down: true}, ev)

	ev, ok = decodeInputEvent(rawEvent(evKey, 30, 2))
	assert.True(t, ok)
	assert.True(t, ev.Down, "autorepeat counts as held")

	ev, ok = decodeInputEvent(rawEvent(evKey, 30, 0))
	assert.True(t, ok)
	assert.False(t, ev.Down)

	_, ok = decodeInputEvent(rawEvent(0x04, 4, 458756)) // EV_MSC scan code
	assert.False(t, ok)
}
