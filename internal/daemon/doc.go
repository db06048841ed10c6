// Package daemon wires the soundboard instance together: shared state, the
// audio engine, the hotkey router, the control socket, directory and config
// watchers and desktop notifications.
package daemon
