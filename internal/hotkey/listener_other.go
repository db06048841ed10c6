//go:build !linux

package hotkey

import (
	"context"
	"log/slog"
)

// Listener is unavailable outside Linux.
type Listener struct{}

// NewListener returns a listener that always fails to start.
func NewListener(_ []string, _ func(Event), _ *slog.Logger) *Listener {
	return &Listener{}
}

// Start returns ErrUnsupported.
func (l *Listener) Start(context.Context) error {
	return ErrUnsupported
}

// Stop does nothing.
func (l *Listener) Stop() {}
