package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/midianimator/backend/internal/domain/state"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/window"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/monitoring"
)

// DefaultEventName is the push event the UI subscribes to.
const DefaultEventName = "update_state"

var (
	// ErrStartupInvariant means the window was not bound when the initial
	// push fired. It indicates a bootstrap ordering bug and is fatal.
	ErrStartupInvariant = errors.New("startup invariant violated: window handle unbound at initial push")
	// ErrInitialPushDone is returned when the initial push was already claimed.
	ErrInitialPushDone = errors.New("initial push already performed")
)

// Options tunes protocol behavior.
type Options struct {
	EventName     string
	EchoOnReplace bool
}

// Service exposes the protocol operations over one store and window handle.
type Service struct {
	store    *state.Store
	window   *window.Handle
	logger   *zap.Logger
	frontend *zap.Logger
	metrics  *monitoring.Metrics
	opts     Options

	initialClaimed atomic.Bool
}

// NewService creates a protocol service.
func NewService(store *state.Store, handle *window.Handle, logger *logging.Logger, opts Options) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.EventName == "" {
		opts.EventName = DefaultEventName
	}
	return &Service{
		store:    store,
		window:   handle,
		logger:   logger.Protocol(),
		frontend: logger.Frontend(),
		opts:     opts,
	}
}

// WithMetrics adds metrics tracking to the service
func (s *Service) WithMetrics(metrics *monitoring.Metrics) *Service {
	s.metrics = metrics
	return s
}

// EventName returns the name used for push events.
func (s *Service) EventName() string {
	return s.opts.EventName
}

// Snapshot returns the current state.
func (s *Service) Snapshot() state.ApplicationState {
	return s.store.Snapshot()
}

// Ready marks the UI as initialized and returns the full state.
func (s *Service) Ready() state.ApplicationState {
	snap := s.store.MarkReady()
	s.logger.Info("UI signaled ready")
	if s.metrics != nil {
		s.metrics.IncReadySignals()
	}
	return snap
}

// ReplaceState decodes serialized as a full state and swaps it in. A payload
// that does not match the schema leaves the store untouched and returns an
// error matching state.ErrDeserialization.
func (s *Service) ReplaceState(serialized string) error {
	if err := s.store.ReplaceJSON([]byte(serialized)); err != nil {
		s.logger.Warn("Rejected frontend state update", zap.Error(err))
		s.recordReplace("deserialization_error")
		return err
	}

	s.logger.Info("Frontend state update", zap.Int("bytes", len(serialized)))
	s.logger.Debug("Frontend state payload", zap.String("state", serialized))
	s.recordReplace("success")

	if s.opts.EchoOnReplace {
		if err := s.push(monitoring.PushEcho); err != nil && !errors.Is(err, window.ErrNotBound) {
			s.logger.Warn("Echo push failed", zap.Error(err))
		}
	}
	return nil
}

// Log writes a line from the UI to the backend log.
func (s *Service) Log(message string) {
	s.LogAt("info", message)
}

// LogAt writes a UI line at level ("debug", "info", "warn", "error").
// Unrecognized levels log at info.
func (s *Service) LogAt(level, message string, fields ...zap.Field) {
	switch level {
	case "error":
		s.frontend.Error(message, fields...)
	case "warn", "warning":
		s.frontend.Warn(message, fields...)
	case "debug", "verbose":
		s.frontend.Debug(message, fields...)
	default:
		s.frontend.Info(message, fields...)
	}
	if s.metrics != nil {
		s.metrics.IncFrontendLogs()
	}
}

// PushState emits the current state to the UI. It returns an error wrapping
// window.ErrNotBound when the UI surface has not been bound yet.
func (s *Service) PushState() error {
	return s.push(monitoring.PushExplicit)
}

// RunInitialPush waits until the state is ready, then pushes it once.
// Only the first call does any work; later calls return ErrInitialPushDone.
// The wait ends early with ctx.Err() when ctx is cancelled.
func (s *Service) RunInitialPush(ctx context.Context) error {
	if !s.initialClaimed.CompareAndSwap(false, true) {
		return ErrInitialPushDone
	}

	s.logger.Debug("Waiting for UI readiness")
	if err := s.store.Gate().Wait(ctx); err != nil {
		return err
	}

	if !s.window.Bound() {
		s.recordPush(monitoring.PushInitial, "unbound")
		return ErrStartupInvariant
	}
	if err := s.push(monitoring.PushInitial); err != nil {
		if errors.Is(err, window.ErrNotBound) {
			return fmt.Errorf("%w: %v", ErrStartupInvariant, err)
		}
		return err
	}
	return nil
}

// SetConnection records the attached DCC application and pushes the result.
// The push is skipped while the UI surface is not bound yet.
func (s *Service) SetConnection(info state.ConnectionInfo) (state.ApplicationState, error) {
	return s.mutateAndPush(func(st *state.ApplicationState) error {
		st.ApplyConnection(info)
		return nil
	})
}

// ClearConnection resets the connection metadata and pushes the result.
func (s *Service) ClearConnection() (state.ApplicationState, error) {
	return s.mutateAndPush(func(st *state.ApplicationState) error {
		st.ClearConnection()
		return nil
	})
}

func (s *Service) mutateAndPush(f func(*state.ApplicationState) error) (state.ApplicationState, error) {
	if err := s.store.WithExclusiveAccess(f); err != nil {
		return state.ApplicationState{}, err
	}
	if err := s.PushState(); err != nil && !errors.Is(err, window.ErrNotBound) {
		return s.store.Snapshot(), err
	}
	return s.store.Snapshot(), nil
}

// push snapshots the store and emits it. The store lock is released before
// the window handle is touched.
func (s *Service) push(trigger string) error {
	snap := s.store.Snapshot()
	payload, err := state.Encode(snap)
	if err != nil {
		s.recordPush(trigger, "encode_error")
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := s.window.Emit(s.opts.EventName, json.RawMessage(payload)); err != nil {
		if errors.Is(err, window.ErrNotBound) {
			s.recordPush(trigger, "unbound")
			return fmt.Errorf("push %s: %w", trigger, err)
		}
		s.recordPush(trigger, "error")
		s.logger.Error("State push failed", zap.String("trigger", trigger), zap.Error(err))
		return fmt.Errorf("push %s: %w", trigger, err)
	}

	s.recordPush(trigger, "success")
	s.logger.Info("Backend state update",
		zap.String("trigger", trigger),
		zap.String("event", s.opts.EventName),
		zap.Bool("ready", snap.Ready),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

func (s *Service) recordReplace(result string) {
	if s.metrics != nil {
		s.metrics.RecordReplace(result)
	}
}

func (s *Service) recordPush(trigger, result string) {
	if s.metrics != nil {
		s.metrics.RecordPush(trigger, result)
	}
}
