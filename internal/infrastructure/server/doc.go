// Package server wires the backend together.
//
// NewServer builds the state store, binds the websocket hub as the window
// surface, creates the protocol service and dispatcher, and registers the
// HTTP and websocket routes. Run serves until its context is cancelled and
// owns the one-shot initial push: it waits for the UI's ready signal and
// treats an unbound window at that point as fatal.
package server
