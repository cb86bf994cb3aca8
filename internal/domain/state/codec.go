package state

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/bytedance/sonic"
)

var codec = sonic.Config{
	DisallowUnknownFields: true,
	NoNullSliceOrMap:      true,
	SortMapKeys:           true,
	UseNumber:             true,
	ValidateString:        true,
}.Froze()

var nullLiteral = []byte("null")

// Encode serializes a state for the push event or a command response.
func Encode(s ApplicationState) ([]byte, error) {
	return codec.Marshal(s.Clone())
}

// Decode strictly parses a full ApplicationState. Every field must be present
// and non-null, unknown fields are rejected, and each scene must be a JSON
// object. The auxiliary mappings accept any JSON value per key; numbers inside
// them are kept as json.Number so integers beyond 2^53 survive a round trip.
func Decode(raw []byte) (ApplicationState, error) {
	var fields map[string]json.RawMessage
	if err := codec.Unmarshal(raw, &fields); err != nil {
		return ApplicationState{}, &DecodeError{Reason: "payload is not a JSON object", Err: err}
	}
	if fields == nil {
		return ApplicationState{}, &DecodeError{Reason: "payload is null"}
	}

	known := make(map[string]struct{}, len(Fields))
	for _, name := range Fields {
		known[name] = struct{}{}
		value, ok := fields[name]
		if !ok {
			return ApplicationState{}, &DecodeError{Field: name, Reason: "missing"}
		}
		if bytes.Equal(bytes.TrimSpace(value), nullLiteral) {
			return ApplicationState{}, &DecodeError{Field: name, Reason: "must not be null"}
		}
	}

	var unknown []string
	for name := range fields {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ApplicationState{}, &DecodeError{Field: unknown[0], Reason: "unknown field"}
	}

	var s ApplicationState
	if err := codec.Unmarshal(raw, &s); err != nil {
		return ApplicationState{}, &DecodeError{Reason: "field has the wrong type", Err: err}
	}
	for name, scene := range s.SceneData {
		if scene == nil {
			return ApplicationState{}, &DecodeError{Field: "scene_data." + name, Reason: "scene must be an object"}
		}
	}
	return s, nil
}
