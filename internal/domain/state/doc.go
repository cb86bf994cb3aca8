// Package state holds the single authoritative application state shared
// between the backend and the UI.
//
// The Store is the only writable copy of ApplicationState. The UI receives
// read-only snapshots through push events and may overwrite the state only by
// submitting a complete replacement, which is strictly decoded before it is
// swapped in.
//
// Concurrency:
//   - One mutex guards the whole state; there is no field-level locking
//   - Mutations run against a working copy and are committed atomically
//   - Snapshots are deep copies and never alias the stored maps
//
// Readiness:
//
// The Gate is a one-shot signal opened the first time a committed state has
// ready=true. It is opened after the commit and after the lock is released,
// so anything waiting on it observes a store that is already ready.
//
// Example Usage:
//
//	store := state.NewStore()
//	go func() {
//	    if err := store.Gate().Wait(ctx); err == nil {
//	        emit("update_state", store.Snapshot())
//	    }
//	}()
//	store.MarkReady()
package state
