// Package window provides the late-bound reference to the UI surface that
// receives push events.
//
// The handle starts empty, is bound exactly once while the server is being
// assembled, and is never cleared. Readers that find it empty should treat
// that as "the UI has not started yet".
package window
