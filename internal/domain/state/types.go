package state

// Scene is a named scene-graph payload owned by the DCC integration.
// The backend treats it as an opaque JSON object.
type Scene map[string]any

// ApplicationState is the state shared between the backend and the UI.
type ApplicationState struct {
	Ready                bool             `json:"ready"`
	Connected            bool             `json:"connected"`
	ConnectedApplication string           `json:"connected_application"`
	ConnectedVersion     string           `json:"connected_version"`
	ConnectedFileName    string           `json:"connected_file_name"`
	SceneData            map[string]Scene `json:"scene_data"`
	RFInstance           map[string]any   `json:"rf_instance"`
	ExecutedResults      map[string]any   `json:"executed_results"`
	ExecutedInputs       map[string]any   `json:"executed_inputs"`
}

// Fields lists the JSON field names of ApplicationState in declaration order.
// A replacement payload must carry every one of them and nothing else.
var Fields = []string{
	"ready",
	"connected",
	"connected_application",
	"connected_version",
	"connected_file_name",
	"scene_data",
	"rf_instance",
	"executed_results",
	"executed_inputs",
}

// Default returns the state the backend starts with.
func Default() ApplicationState {
	return ApplicationState{
		SceneData:       map[string]Scene{},
		RFInstance:      map[string]any{},
		ExecutedResults: map[string]any{},
		ExecutedInputs:  map[string]any{},
	}
}

// Clone returns a deep copy. Nil maps come back empty so the copy always
// serializes its mappings as objects.
func (s ApplicationState) Clone() ApplicationState {
	out := s
	out.SceneData = make(map[string]Scene, len(s.SceneData))
	for name, scene := range s.SceneData {
		out.SceneData[name] = Scene(cloneObject(scene))
	}
	out.RFInstance = cloneObject(s.RFInstance)
	out.ExecutedResults = cloneObject(s.ExecutedResults)
	out.ExecutedInputs = cloneObject(s.ExecutedInputs)
	return out
}

// ConnectionInfo describes the DCC application attached to the backend.
type ConnectionInfo struct {
	Application string `json:"application" binding:"required"`
	Version     string `json:"version"`
	FileName    string `json:"file_name"`
}

// ApplyConnection sets the connection metadata fields together.
func (s *ApplicationState) ApplyConnection(info ConnectionInfo) {
	s.Connected = true
	s.ConnectedApplication = info.Application
	s.ConnectedVersion = info.Version
	s.ConnectedFileName = info.FileName
}

// ClearConnection resets the connection metadata fields together.
func (s *ApplicationState) ClearConnection() {
	s.Connected = false
	s.ConnectedApplication = ""
	s.ConnectedVersion = ""
	s.ConnectedFileName = ""
}

func cloneObject[M ~map[string]any](src M) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneObject(t)
	case Scene:
		return Scene(cloneObject(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
