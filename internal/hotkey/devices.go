package hotkey

import (
	"bufio"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Errors returned by the listener.
var (
	ErrNoDevices   = errors.New("no keyboard devices available")
	ErrUnsupported = errors.New("global hotkeys are not supported on this platform")
)

// evRep is the EV_REP bit of a device's EV capability mask. Keyboards report
// key repeat; power buttons and most mice do not.
const evRep = 1 << 0x14

// parseKeyboards reads /proc/bus/input/devices content and returns the
// event device paths of every keyboard.
func parseKeyboards(r io.Reader) []string {
	var devices []string
	var handlers []string
	var ev uint64

	flush := func() {
		if ev&evRep != 0 && containsKbd(handlers) {
			for _, h := range handlers {
				if strings.HasPrefix(h, "event") {
					devices = append(devices, filepath.Join("/dev/input", h))
				}
			}
		}
		handlers = nil
		ev = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "H: Handlers="):
			handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
		case strings.HasPrefix(line, "B: EV="):
			ev, _ = strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
		}
	}
	flush()
	return devices
}

func containsKbd(handlers []string) bool {
	for _, h := range handlers {
		if h == "kbd" {
			return true
		}
	}
	return false
}
