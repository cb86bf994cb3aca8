package window

import (
	"errors"
	"sync"
)

var (
	ErrNotBound     = errors.New("window handle not bound")
	ErrAlreadyBound = errors.New("window handle already bound")
	ErrNilEmitter   = errors.New("window emitter is nil")
)

// Emitter delivers a named fire-and-forget event to the UI.
type Emitter interface {
	Emit(event string, payload any) error
}

// Handle holds the Emitter for the UI surface.
type Handle struct {
	mu      sync.RWMutex
	emitter Emitter // Protected by mu
}

// NewHandle creates an unbound handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Bind sets the emitter. It succeeds only once.
func (h *Handle) Bind(e Emitter) error {
	if e == nil {
		return ErrNilEmitter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.emitter != nil {
		return ErrAlreadyBound
	}
	h.emitter = e
	return nil
}

// Bound reports whether an emitter has been set.
func (h *Handle) Bound() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.emitter != nil
}

// Emit sends an event through the bound emitter. The lock is released before
// the emitter runs.
func (h *Handle) Emit(event string, payload any) error {
	h.mu.RLock()
	e := h.emitter
	h.mu.RUnlock()

	if e == nil {
		return ErrNotBound
	}
	return e.Emit(event, payload)
}
