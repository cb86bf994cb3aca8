// Package main is the entry point for the MIDIAnimator backend server.
//
// The server owns the application state shared with the UI. The UI connects
// over a websocket, signals ready once it has mounted, receives the state as
// an update_state event and sends full-state replacements back.
//
// Configuration:
//   - Settings file (-config or CONFIG_FILE), TOML or YAML
//   - Environment variables (12-factor), overriding the file
//   - CLI flags, overriding both
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev -config settings.toml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
