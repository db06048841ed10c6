// Package control implements the local control socket: a binary
// one-command-per-connection protocol that lets a second invocation drive the
// instance owning the audio sink.
package control

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire sizes.
const (
	MaxRequestSize = 4096
	ResponseSize   = 4096
	responseHeader = 3 // status u8 + payload length u16
	MaxPayload     = ResponseSize - responseHeader
)

// Opcode identifies a command.
type Opcode byte

// Commands.
const (
	OpExit         Opcode = 1
	OpReloadConfig Opcode = 2
	OpAddTab       Opcode = 3
	OpDeleteTab    Opcode = 4
	OpReloadTab    Opcode = 5
	OpPlay         Opcode = 6
	OpStop         Opcode = 7
	OpSetVolume    Opcode = 8
	OpPlayID       Opcode = 9
	OpPlayWaveID   Opcode = 10
	OpStopWaveID   Opcode = 11
)

var opNames = map[Opcode]string{
	OpExit:         "exit",
	OpReloadConfig: "reload-config",
	OpAddTab:       "add-tab",
	OpDeleteTab:    "delete-tab",
	OpReloadTab:    "reload-tab",
	OpPlay:         "play",
	OpStop:         "stop",
	OpSetVolume:    "set-volume",
	OpPlayID:       "play-id",
	OpPlayWaveID:   "play-wave-id",
	OpStopWaveID:   "stop-wave-id",
}

func (o Opcode) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", byte(o))
}

// Status is the first byte of every response. Codes other than StatusOK and
// StatusOKEditOnly mean different things per command.
type Status byte

const (
	// StatusOK means the command succeeded.
	StatusOK Status = 0
	// StatusOKEditOnly means a read-only instance accepted the command
	// without audio side effects or disk writes.
	StatusOKEditOnly Status = 10
)

// reload-config
const ReloadFailed Status = 1

// add-tab
const (
	AddTabEmpty     Status = 1
	AddTabBadPath   Status = 2
	AddTabDuplicate Status = 3
)

// delete-tab and reload-tab
const (
	TabBadPath    Status = 1
	TabConflict   Status = 2
	TabNotFound   Status = 3
	TabIndexRange Status = 4
)

// play
const PlayEmpty Status = 1

// set-volume
const (
	VolumeFileNotFound Status = 1
	VolumeInvalid      Status = 2
)

// play-id, play-wave-id and stop-wave-id
const IDNotFound Status = 1

// OK reports whether s is a success code.
func (s Status) OK() bool {
	return s == StatusOK || s == StatusOKEditOnly
}

// Describe returns a short human-readable meaning of s as a reply to op.
func (s Status) Describe(op Opcode) string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOKEditOnly:
		return "ok (edit-only instance)"
	}

	switch op {
	case OpReloadConfig:
		if s == ReloadFailed {
			return "configuration invalid, previous configuration kept"
		}
	case OpAddTab:
		switch s {
		case AddTabEmpty:
			return "empty path"
		case AddTabBadPath:
			return "not a directory"
		case AddTabDuplicate:
			return "tab already exists"
		}
	case OpDeleteTab, OpReloadTab:
		switch s {
		case TabBadPath:
			return "directory unreadable"
		case TabConflict:
			return "tab is being scanned"
		case TabNotFound:
			return "no such tab"
		case TabIndexRange:
			return "tab index out of range"
		}
	case OpPlay:
		if s == PlayEmpty {
			return "empty path"
		}
	case OpSetVolume:
		switch s {
		case VolumeFileNotFound:
			return "file not found"
		case VolumeInvalid:
			return "invalid volume"
		}
	case OpPlayID, OpPlayWaveID, OpStopWaveID:
		if s == IDNotFound {
			return "id not found"
		}
	}
	return fmt.Sprintf("status %d", byte(s))
}

// SelectorKind says how a tab is selected.
type SelectorKind byte

// Tab selectors.
const (
	SelectCurrent SelectorKind = 0
	SelectIndex   SelectorKind = 1
	SelectPath    SelectorKind = 2
	SelectName    SelectorKind = 3
)

// Selector picks a tab for delete-tab and reload-tab.
type Selector struct {
	Kind  SelectorKind
	Index uint8
	Value string // Path or directory name
}

// VolumeTarget says which volume set-volume changes.
type VolumeTarget byte

// Volume targets.
const (
	TargetSink VolumeTarget = 0
	TargetFile VolumeTarget = 1
)

// VolumeRequest is the payload of set-volume.
type VolumeRequest struct {
	Value     int16
	Increment bool
	Target    VolumeTarget
	Path      string // TargetFile only
}

// Request is one decoded command.
type Request struct {
	Op       Opcode
	Path     string
	Selector Selector
	Volume   VolumeRequest
	ID       uint32
}

// Protocol errors. A server drops the connection without a response.
var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrMalformed     = errors.New("malformed request")
	ErrTooLarge      = errors.New("request too large")
)

// EncodeRequest serializes r.
func EncodeRequest(r Request) ([]byte, error) {
	buf := []byte{byte(r.Op)}

	switch r.Op {
	case OpExit, OpReloadConfig, OpStop:
	case OpAddTab, OpPlay:
		buf = append(buf, r.Path...)
	case OpDeleteTab, OpReloadTab:
		buf = append(buf, byte(r.Selector.Kind))
		switch r.Selector.Kind {
		case SelectCurrent:
		case SelectIndex:
			buf = append(buf, r.Selector.Index)
		case SelectPath, SelectName:
			buf = append(buf, r.Selector.Value...)
		default:
			return nil, fmt.Errorf("%w: selector %d", ErrMalformed, r.Selector.Kind)
		}
	case OpSetVolume:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(r.Volume.Value))
		inc := byte(0)
		if r.Volume.Increment {
			inc = 1
		}
		buf = append(buf, inc, byte(r.Volume.Target))
		if r.Volume.Target == TargetFile {
			buf = append(buf, r.Volume.Path...)
		}
	case OpPlayID, OpPlayWaveID, OpStopWaveID:
		buf = binary.LittleEndian.AppendUint32(buf, r.ID)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, byte(r.Op))
	}

	if len(buf) > MaxRequestSize {
		return nil, ErrTooLarge
	}
	return buf, nil
}

// DecodeRequest parses one request frame.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) == 0 {
		return Request{}, ErrMalformed
	}
	if len(b) > MaxRequestSize {
		return Request{}, ErrTooLarge
	}

	r := Request{Op: Opcode(b[0])}
	p := b[1:]

	switch r.Op {
	case OpExit, OpReloadConfig, OpStop:
	case OpAddTab, OpPlay:
		r.Path = string(p)
	case OpDeleteTab, OpReloadTab:
		if len(p) < 1 {
			return Request{}, ErrMalformed
		}
		r.Selector.Kind = SelectorKind(p[0])
		switch r.Selector.Kind {
		case SelectCurrent:
		case SelectIndex:
			if len(p) < 2 {
				return Request{}, ErrMalformed
			}
			r.Selector.Index = p[1]
		case SelectPath, SelectName:
			r.Selector.Value = string(p[1:])
		default:
			return Request{}, fmt.Errorf("%w: selector %d", ErrMalformed, p[0])
		}
	case OpSetVolume:
		if len(p) < 4 {
			return Request{}, ErrMalformed
		}
		r.Volume.Value = int16(binary.LittleEndian.Uint16(p[0:2]))
		r.Volume.Increment = p[2] != 0
		r.Volume.Target = VolumeTarget(p[3])
		switch r.Volume.Target {
		case TargetSink:
		case TargetFile:
			r.Volume.Path = string(p[4:])
		default:
			return Request{}, fmt.Errorf("%w: volume target %d", ErrMalformed, p[3])
		}
	case OpPlayID, OpPlayWaveID, OpStopWaveID:
		if len(p) < 4 {
			return Request{}, ErrMalformed
		}
		r.ID = binary.LittleEndian.Uint32(p[0:4])
	default:
		return Request{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, b[0])
	}
	return r, nil
}

// Response is one reply.
type Response struct {
	Status  Status
	Payload []byte
}

// TextResponse builds a response carrying a UTF-8 string.
func TextResponse(s Status, text string) Response {
	return Response{Status: s, Payload: []byte(text)}
}

// VolumeResponse builds a response carrying a u32 volume.
func VolumeResponse(s Status, v uint32) Response {
	return Response{Status: s, Payload: binary.LittleEndian.AppendUint32(nil, v)}
}

// Text returns the payload as a string.
func (r Response) Text() string {
	return string(r.Payload)
}

// Volume returns the payload as a u32 volume.
func (r Response) Volume() (uint32, error) {
	if len(r.Payload) < 4 {
		return 0, ErrMalformed
	}
	return binary.LittleEndian.Uint32(r.Payload), nil
}

// EncodeResponse writes r into a fixed-size frame. Payloads longer than
// MaxPayload are truncated.
func EncodeResponse(r Response) []byte {
	buf := make([]byte, ResponseSize)
	payload := r.Payload
	if len(payload) > MaxPayload {
		payload = payload[:MaxPayload]
	}
	buf[0] = byte(r.Status)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[responseHeader:], payload)
	return buf
}

// DecodeResponse parses a fixed-size response frame.
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < responseHeader {
		return Response{}, ErrMalformed
	}
	n := int(binary.LittleEndian.Uint16(b[1:3]))
	if responseHeader+n > len(b) {
		return Response{}, ErrMalformed
	}
	payload := make([]byte, n)
	copy(payload, b[responseHeader:responseHeader+n])
	return Response{Status: Status(b[0]), Payload: payload}, nil
}
