package store

import "context"

// Redraw is a coalescing "state changed" notice. Any number of Request calls
// between two waits produce a single wakeup.
type Redraw struct {
	ch chan struct{}
}

// NewRedraw creates a redraw signal.
func NewRedraw() *Redraw {
	return &Redraw{ch: make(chan struct{}, 1)}
}

// Request marks the state as changed. It never blocks.
func (r *Redraw) Request() {
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives one value per coalesced request.
func (r *Redraw) C() <-chan struct{} {
	return r.ch
}

// Wait blocks until a redraw is requested or ctx is done.
// It returns false if ctx ended first.
func (r *Redraw) Wait(ctx context.Context) bool {
	select {
	case <-r.ch:
		return true
	case <-ctx.Done():
		return false
	}
}
