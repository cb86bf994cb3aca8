package state

import (
	"context"
	"sync"
)

// Gate is a one-shot readiness signal. Once opened it stays open.
type Gate struct {
	once sync.Once
	done chan struct{}
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Open releases every current and future waiter. Safe to call repeatedly.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.done) })
}

// Done returns a channel that is closed when the gate opens.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// IsOpen reports whether the gate has been opened.
func (g *Gate) IsOpen() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate opens or ctx is done. An open gate wins over a
// cancelled context.
func (g *Gate) Wait(ctx context.Context) error {
	if g.IsOpen() {
		return nil
	}
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
