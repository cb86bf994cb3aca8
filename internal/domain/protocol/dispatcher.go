package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/midianimator/backend/internal/domain/state"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/monitoring"
)

// Command names
const (
	CommandReady         = "ready"
	CommandReplaceState  = "replace_state"
	CommandJSUpdateState = "js_update_state"
	CommandLog           = "log"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidArgs    = errors.New("invalid command arguments")
)

// Error codes reported to the UI
const (
	CodeDeserialization = "deserialization"
	CodeUnknownCommand  = "unknown_command"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal"
)

// Call is one command invocation from the UI.
type Call struct {
	Transport string
	Command   string
	Args      json.RawMessage
}

// HandlerFunc runs one command.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes commands to the protocol service.
type Dispatcher struct {
	svc      *Service
	handlers map[string]HandlerFunc
}

// NewDispatcher creates a dispatcher with the protocol commands registered.
func NewDispatcher(svc *Service) *Dispatcher {
	d := &Dispatcher{
		svc:      svc,
		handlers: make(map[string]HandlerFunc),
	}

	d.Register(CommandReady, func(ctx context.Context, args json.RawMessage) (any, error) {
		return svc.Ready(), nil
	})

	replace := func(ctx context.Context, args json.RawMessage) (any, error) {
		payload, err := stateArg(args)
		if err != nil {
			return nil, err
		}
		return nil, svc.ReplaceState(payload)
	}
	d.Register(CommandReplaceState, replace)
	d.Register(CommandJSUpdateState, replace)

	d.Register(CommandLog, func(ctx context.Context, args json.RawMessage) (any, error) {
		svc.Log(messageArg(args))
		return nil, nil
	})

	return d
}

// Register adds or replaces a command handler.
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.handlers[name] = h
}

// Commands lists registered command names.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a command and returns its result.
func (d *Dispatcher) Invoke(ctx context.Context, call Call) (any, error) {
	h, ok := d.handlers[call.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, call.Command)
	}

	timer := monitoring.NewTimer(d.svc.metrics, call.Command, call.Transport)
	result, err := h(ctx, call.Args)
	if err != nil {
		timer.Stop(ErrorCode(err))
		return nil, err
	}
	timer.Stop("success")
	return result, nil
}

// ErrorCode classifies an Invoke error for the UI.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, state.ErrDeserialization):
		return CodeDeserialization
	case errors.Is(err, ErrUnknownCommand):
		return CodeUnknownCommand
	case errors.Is(err, ErrInvalidArgs):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

// stateArg extracts the state payload. The UI sends it as a JSON string
// (JSON.stringify output); a raw object is accepted as well.
func stateArg(args json.RawMessage) (string, error) {
	var wrapper struct {
		State json.RawMessage `json:"state"`
	}
	if err := sonic.Unmarshal(args, &wrapper); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	raw := bytes.TrimSpace(wrapper.State)
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: missing \"state\"", ErrInvalidArgs)
	}
	if raw[0] == '"' {
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return s, nil
	}
	return string(raw), nil
}

// messageArg extracts the log message. log never fails, so unreadable
// arguments are logged verbatim.
func messageArg(args json.RawMessage) string {
	var wrapper struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(args, &wrapper); err != nil {
		return string(args)
	}
	return wrapper.Message
}
