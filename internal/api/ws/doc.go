// Package ws carries the state synchronization protocol over WebSockets.
//
// The Hub is the emitter bound into the window handle: every push becomes an
// event frame broadcast to all connected clients. The Handler upgrades
// connections, registers them with the Hub and routes invoke frames through
// the protocol dispatcher.
//
// Message Types (Client → Server):
//   - invoke: run a command ({"type":"invoke","id":"1","command":"ready"})
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: welcome frame with the client ID and available commands
//   - response: command result, correlated by id
//   - error: command or frame failure with a machine-readable code
//   - event: pushed state ({"type":"event","event":"update_state","payload":{...}})
//   - pong: keep-alive reply
//
// Example Usage:
//
//	hub := ws.NewHub(logger, 10*time.Second)
//	_ = handle.Bind(hub)
//	handler := ws.NewHandler(hub, dispatcher, logger, 16<<20)
//	router.GET("/stream", handler.HandleConnection)
package ws
