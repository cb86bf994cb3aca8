package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/midianimator/backend/internal/domain/protocol"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/state"
	"github.com/GriffinCanCode/midianimator/backend/internal/domain/window"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/logging"
)

// Transport labels command metrics for this package
const Transport = "http"

// Version is reported by the root endpoint
const Version = "0.1.0"

// CodeBodyTooLarge is returned when an invoke body exceeds the configured limit
const CodeBodyTooLarge = "body_too_large"

// ClientCounter reports connected UI clients
type ClientCounter interface {
	Count() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	svc        *protocol.Service
	dispatcher *protocol.Dispatcher
	clients    ClientCounter
	logger     *zap.Logger
	maxBody    int64
	startTime  time.Time
}

// NewHandlers creates a new handler set. clients may be nil. maxBody caps the
// invoke request body; zero or less disables the cap.
func NewHandlers(svc *protocol.Service, dispatcher *protocol.Dispatcher, clients ClientCounter, logger *logging.Logger, maxBody int64) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		svc:        svc,
		dispatcher: dispatcher,
		clients:    clients,
		logger:     logger.Named("http"),
		maxBody:    maxBody,
		startTime:  time.Now(),
	}
}

// Root handles service info
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "online",
		"service":  "MIDIAnimator backend",
		"version":  Version,
		"event":    h.svc.EventName(),
		"commands": h.dispatcher.Commands(),
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	clients := 0
	if h.clients != nil {
		clients = h.clients.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"ready":          h.svc.Snapshot().Ready,
		"clients":        clients,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// Invoke runs a protocol command. The request body is the args object.
func (h *Handlers) Invoke(c *gin.Context) {
	reader := c.Request.Body
	if h.maxBody > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   err.Error(),
				"code":    CodeBodyTooLarge,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read request body"})
		return
	}

	result, err := h.dispatcher.Invoke(c.Request.Context(), protocol.Call{
		Transport: Transport,
		Command:   c.Param("command"),
		Args:      body,
	})
	if err != nil {
		code := protocol.ErrorCode(err)
		c.JSON(statusFor(code), gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    code,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// StateHandler serves the current snapshot in the wire encoding, compressed
// when the client accepts gzip. The ETag is the state fingerprint, so pollers
// get 304 until the state changes.
func (h *Handlers) StateHandler() (http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(0))
	if err != nil {
		return nil, err
	}
	return wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := state.Encode(h.svc.Snapshot())
		if err != nil {
			h.logger.Error("Failed to encode state", zap.Error(err))
			http.Error(w, "failed to encode state", http.StatusInternalServerError)
			return
		}

		etag := `"` + state.Fingerprint(payload) + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	})), nil
}

// PushState emits the current state to connected UIs
func (h *Handlers) PushState(c *gin.Context) {
	if err := h.svc.PushState(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, window.ErrNotBound) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   h.svc.EventName(),
	})
}

// PutConnection records the attached DCC application
func (h *Handlers) PutConnection(c *gin.Context) {
	var info state.ConnectionInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	st, err := h.svc.SetConnection(info)
	h.respondConnection(c, st, err)
}

// DeleteConnection clears the connection metadata
func (h *Handlers) DeleteConnection(c *gin.Context) {
	st, err := h.svc.ClearConnection()
	h.respondConnection(c, st, err)
}

func (h *Handlers) respondConnection(c *gin.Context, st state.ApplicationState, err error) {
	if err != nil {
		// The mutation landed even when the push did not
		h.logger.Warn("Connection change not pushed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
			"state":   st,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   st,
	})
}

func statusFor(code string) int {
	switch code {
	case protocol.CodeDeserialization:
		return http.StatusUnprocessableEntity
	case protocol.CodeUnknownCommand:
		return http.StatusNotFound
	case protocol.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
