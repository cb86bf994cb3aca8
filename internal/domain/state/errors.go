package state

import (
	"errors"
	"fmt"
)

// ErrDeserialization reports a replacement payload that does not match the
// ApplicationState schema.
var ErrDeserialization = errors.New("state deserialization failed")

// DecodeError describes why a payload was rejected.
type DecodeError struct {
	Field  string // empty when the payload as a whole is unusable
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrDeserialization, e.Reason)
	}
	return fmt.Sprintf("%v: field %q: %s", ErrDeserialization, e.Field, e.Reason)
}

// Unwrap exposes both the sentinel and the underlying codec error.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeserialization}
	}
	return []error{ErrDeserialization, e.Err}
}
