// Package http exposes the state synchronization protocol over plain HTTP.
//
// Routes:
//   - POST /invoke/:command  run a protocol command with the body as args
//   - GET  /state            current snapshot, gzip-compressed when accepted
//   - POST /state/push       push the current state to connected UIs
//   - PUT  /connection       record the attached DCC application
//   - DELETE /connection     clear the connection metadata
//   - POST /logs             batched UI log lines
//   - GET  /health, GET /    liveness and service info
package http
