package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blenderState = `{"ready":true,"connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	assert.False(t, snap.Ready)
	assert.False(t, snap.Connected)
	assert.Empty(t, snap.ConnectedApplication)
	assert.NotNil(t, snap.SceneData)
	assert.Empty(t, snap.SceneData)
	assert.NotNil(t, snap.RFInstance)
	assert.NotNil(t, snap.ExecutedResults)
	assert.NotNil(t, snap.ExecutedInputs)
	assert.False(t, s.Gate().IsOpen())
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.WithExclusiveAccess(func(st *ApplicationState) error {
		st.SceneData["main"] = Scene{"objects": []any{map[string]any{"name": "Cube"}}}
		st.RFInstance["nodes"] = []any{"a", "b"}
		return nil
	}))

	snap := s.Snapshot()
	snap.SceneData["main"]["objects"].([]any)[0].(map[string]any)["name"] = "Sphere"
	snap.RFInstance["nodes"].([]any)[0] = "z"
	snap.SceneData["extra"] = Scene{}

	again := s.Snapshot()
	assert.Equal(t, "Cube", again.SceneData["main"]["objects"].([]any)[0].(map[string]any)["name"])
	assert.Equal(t, "a", again.RFInstance["nodes"].([]any)[0])
	assert.NotContains(t, again.SceneData, "extra")
}

func TestMarkReadyIsIdempotent(t *testing.T) {
	s := NewStore()

	first := s.MarkReady()
	assert.True(t, first.Ready)
	assert.True(t, s.Gate().IsOpen())

	for i := 0; i < 3; i++ {
		again := s.MarkReady()
		assert.Equal(t, first, again)
	}
	assert.Equal(t, first, s.Snapshot())
}

func TestReplaceJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		literals []string
	}{
		{
			name:    "blender connection",
			payload: blenderState,
		},
		{
			name:    "scenes and opaque blobs",
			payload: `{"ready":false,"connected":false,"connected_application":"","connected_version":"","connected_file_name":"","scene_data":{"main":{"objects":[{"name":"Cube","frame":12}]}},"rf_instance":{"viewport":{"x":1.5,"zoom":2}},"executed_results":{"node-1":[1,2,3],"node-2":"done"},"executed_inputs":{"node-1":null,"flag":true}}`,
		},
		{
			name:    "large integers in opaque values",
			payload: `{"ready":false,"connected":false,"connected_application":"","connected_version":"","connected_file_name":"","scene_data":{"s":{"frame":9007199254740993}},"rf_instance":{},"executed_results":{"id":12345678901234567890},"executed_inputs":{"n":-9223372036854775808,"f":0.1}}`,
			literals: []string{
				`"frame":9007199254740993`,
				`"id":12345678901234567890`,
				`"n":-9223372036854775808`,
				`"f":0.1`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.ReplaceJSON([]byte(tt.payload)))

			got, err := Encode(s.Snapshot())
			require.NoError(t, err)
			assert.JSONEq(t, tt.payload, string(got))
			for _, lit := range tt.literals {
				assert.Contains(t, string(got), lit)
			}
		})
	}
}

func TestReplaceJSONRejectsMalformed(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantField string
	}{
		{name: "invalid json", payload: `{"ready":`},
		{name: "not an object", payload: `[1,2,3]`},
		{name: "null payload", payload: `null`},
		{
			name:      "missing field",
			payload:   `{"ready":true,"connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{},"rf_instance":{},"executed_results":{}}`,
			wantField: "executed_inputs",
		},
		{
			name:      "unknown field",
			payload:   `{"ready":true,"connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{},"rf_instance":{},"executed_results":{},"executed_inputs":{},"theme":"dark"}`,
			wantField: "theme",
		},
		{
			name:      "null field",
			payload:   `{"ready":true,"connected":true,"connected_application":null,"connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`,
			wantField: "connected_application",
		},
		{
			name:    "wrong type",
			payload: `{"ready":"yes","connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`,
		},
		{
			name:    "scene is not an object",
			payload: `{"ready":true,"connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{"main":5},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`,
		},
		{
			name:      "null scene",
			payload:   `{"ready":true,"connected":true,"connected_application":"Blender","connected_version":"4.0","connected_file_name":"scene.blend","scene_data":{"main":null},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`,
			wantField: "scene_data.main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.WithExclusiveAccess(func(st *ApplicationState) error {
				st.ConnectedApplication = "Houdini"
				st.ExecutedResults["n"] = 1.0
				return nil
			}))
			before := s.Snapshot()

			err := s.ReplaceJSON([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDeserialization)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decodeErr.Field)
			}

			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestReplaceKeepsReadyLatched(t *testing.T) {
	s := NewStore()
	s.MarkReady()

	require.NoError(t, s.ReplaceJSON([]byte(`{"ready":false,"connected":false,"connected_application":"","connected_version":"","connected_file_name":"","scene_data":{},"rf_instance":{},"executed_results":{},"executed_inputs":{}}`)))

	assert.True(t, s.Snapshot().Ready)
}

func TestReplaceWithReadyOpensGate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.ReplaceJSON([]byte(blenderState)))

	assert.True(t, s.Gate().IsOpen())
	assert.True(t, s.Snapshot().Ready)
}

func TestWithExclusiveAccessErrorDiscardsChanges(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithExclusiveAccess(func(st *ApplicationState) error {
		st.Connected = true
		st.Ready = true
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Default(), s.Snapshot())
	assert.False(t, s.Gate().IsOpen())
}

func TestWithExclusiveAccessPanicKeepsStoreUsable(t *testing.T) {
	s := NewStore()

	assert.Panics(t, func() {
		_ = s.WithExclusiveAccess(func(st *ApplicationState) error {
			st.ConnectedApplication = "half written"
			panic("mutator failed")
		})
	})

	// The lock was released and the partial write never landed.
	done := make(chan ApplicationState, 1)
	go func() { done <- s.Snapshot() }()
	select {
	case snap := <-done:
		assert.Empty(t, snap.ConnectedApplication)
	case <-time.After(time.Second):
		t.Fatal("store lock was not released after a panicking mutator")
	}
}

func TestConcurrentReplacesLastWriterWins(t *testing.T) {
	s := NewStore()
	const k = 32

	submitted := make([]ApplicationState, k)
	payloads := make([]string, k)
	for i := 0; i < k; i++ {
		payloads[i] = fmt.Sprintf(`{"ready":true,"connected":true,"connected_application":"app-%d","connected_version":"v%d","connected_file_name":"file-%d.blend","scene_data":{"s%d":{"i":%d}},"rf_instance":{"i":%d},"executed_results":{},"executed_inputs":{}}`, i, i, i, i, i, i)
		st, err := Decode([]byte(payloads[i]))
		require.NoError(t, err)
		submitted[i] = st
	}

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.ReplaceJSON([]byte(payloads[i])))
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	final := s.Snapshot()
	assert.Contains(t, submitted, final)
}

func TestConnectionHelpers(t *testing.T) {
	st := Default()
	st.ApplyConnection(ConnectionInfo{Application: "Blender", Version: "4.0", FileName: "scene.blend"})

	assert.True(t, st.Connected)
	assert.Equal(t, "Blender", st.ConnectedApplication)
	assert.Equal(t, "4.0", st.ConnectedVersion)
	assert.Equal(t, "scene.blend", st.ConnectedFileName)

	st.ClearConnection()
	assert.Equal(t, Default(), st)
}

func TestEncodeWritesEmptyMappings(t *testing.T) {
	data, err := Encode(ApplicationState{})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), decoded)
}

func TestGateWait(t *testing.T) {
	t.Run("returns after open", func(t *testing.T) {
		g := NewGate()
		errCh := make(chan error, 1)
		go func() { errCh <- g.Wait(context.Background()) }()

		g.Open()
		g.Open()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after Open")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		g := NewGate()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, g.Wait(ctx), context.Canceled)
		assert.False(t, g.IsOpen())
	})

	t.Run("open gate wins over cancelled context", func(t *testing.T) {
		g := NewGate()
		g.Open()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.NoError(t, g.Wait(ctx))
	})
}

func TestFingerprintIsStable(t *testing.T) {
	a := Default()
	a.RFInstance["zoom"] = 1.5
	a.RFInstance["nodes"] = []any{"a", "b"}
	a.ExecutedInputs["n1"] = map[string]any{"x": 1.0, "y": 2.0}

	b := a.Clone()

	pa, err := Encode(a)
	require.NoError(t, err)
	pb, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(pa), Fingerprint(pb))
	assert.Len(t, Fingerprint(pa), 32)

	b.Connected = true
	pb, err = Encode(b)
	require.NoError(t, err)
	assert.NotEqual(t, Fingerprint(pa), Fingerprint(pb))
}
