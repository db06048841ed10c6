//go:build linux

package hotkey

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	evKey       = 0x01
	devicesPath = "/proc/bus/input/devices"
)

// inputEventSize is sizeof(struct input_event): a timeval followed by
// type (u16), code (u16) and value (s32).
var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Listener reads key events from evdev keyboards.
type Listener struct {
	mu      sync.Mutex
	logger  *slog.Logger
	devices []string
	handle  func(Event)
	files   []*os.File
	wg      sync.WaitGroup
	running bool
}

// NewListener creates a listener for the given event devices, or for every
// detected keyboard if devices is empty. handle is called from the reader
// goroutines, one call per key press, release or repeat.
func NewListener(devices []string, handle func(Event), logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		logger:  logger,
		devices: devices,
		handle:  handle,
	}
}

// Start opens the devices and starts one reader per device. Devices that
// cannot be opened are skipped; if none can, ErrNoDevices is returned.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	devices := l.devices
	if len(devices) == 0 {
		f, err := os.Open(devicesPath)
		if err != nil {
			return errors.Join(ErrNoDevices, err)
		}
		devices = parseKeyboards(f)
		_ = f.Close()
	}

	for _, path := range devices {
		f, err := os.Open(path)
		if err != nil {
			l.logger.Warn("failed to open input device", "device", path, "error", err)
			continue
		}
		l.files = append(l.files, f)
	}
	if len(l.files) == 0 {
		return ErrNoDevices
	}

	l.running = true
	for _, f := range l.files {
		l.wg.Add(1)
		go l.read(ctx, f)
	}
	l.logger.Info("hotkey listener started", "devices", len(l.files))
	return nil
}

func (l *Listener) read(ctx context.Context, f *os.File) {
	defer l.wg.Done()

	buf := make([]byte, inputEventSize*64)
	for {
		n, err := f.Read(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.EOF) {
				l.logger.Warn("input device read failed", "device", f.Name(), "error", err)
			}
			return
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			if ev, ok := decodeInputEvent(buf[off : off+inputEventSize]); ok {
				l.handle(ev)
			}
		}
	}
}

// decodeInputEvent extracts a key event from one raw input_event record.
// Non-key events are skipped.
func decodeInputEvent(raw []byte) (Event, bool) {
	tail := raw[len(raw)-8:]
	typ := binary.NativeEndian.Uint16(tail[0:2])
	code := binary.NativeEndian.Uint16(tail[2:4])
	value := int32(binary.NativeEndian.Uint32(tail[4:8]))
	if typ != evKey {
		return Event{}, false
	}
	// value: 0 release, 1 press, 2 autorepeat
	return Event{Key: Key(code), Down: value != 0}, true
}

// Stop closes every device and waits for the readers.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	files := l.files
	l.files = nil
	l.mu.Unlock()

	for _, f := range files {
		_ = f.Close()
	}
	l.wg.Wait()
	l.logger.Debug("hotkey listener stopped")
}
