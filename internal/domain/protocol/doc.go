// Package protocol implements the state synchronization protocol between the
// backend and the UI.
//
// Operations:
//   - ready: the UI finished initializing; marks the state ready and returns it
//   - replace_state: the UI overwrites the whole state with a full payload
//   - push_state: the backend emits the current state as an update_state event
//   - log: the UI forwards a diagnostic line to the backend log
//
// The initial push runs once per Service. It waits on the store's readiness
// gate, so the first pushed snapshot always has ready=true. Later pushes are
// explicit: code that mutates the store calls PushState afterwards.
//
// The Dispatcher maps command names to Service operations so every transport
// (websocket, HTTP) shares one command table.
package protocol
