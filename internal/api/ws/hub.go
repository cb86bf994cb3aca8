package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/monitoring"
)

// Frame types
const (
	TypeInvoke   = "invoke"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeSystem   = "system"
	TypeResponse = "response"
	TypeError    = "error"
	TypeEvent    = "event"
)

// EventFrame carries a pushed event to the UI
type EventFrame struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Client is one connected UI
type Client struct {
	ID string

	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

// send encodes v and writes it as a single text frame. Writes are serialized
// per connection.
func (c *Client) send(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
}

// Hub tracks connected clients and broadcasts events to them. It implements
// window.Emitter.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *monitoring.Metrics
}

// NewHub creates an empty hub
func NewHub(logger *logging.Logger, writeTimeout time.Duration) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		clients:      make(map[string]*Client),
		writeTimeout: writeTimeout,
		logger:       logger.Named("ws"),
	}
}

// WithMetrics adds metrics tracking to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// Emit broadcasts an event frame to every client. Clients whose write fails
// are dropped and their errors joined into the result. With no clients
// connected the event is discarded.
func (h *Hub) Emit(event string, payload any) error {
	frame := EventFrame{Type: TypeEvent, Event: event, Payload: payload}

	var errs []error
	for _, c := range h.snapshot() {
		if err := c.send(frame); err != nil {
			h.logger.Warn("Dropping client after failed write",
				zap.String("client_id", c.ID),
				zap.Error(err),
			)
			h.unregister(c)
			errs = append(errs, fmt.Errorf("client %s: %w", c.ID, err))
			continue
		}
		h.recordMessage("out", TypeEvent)
	}
	return errors.Join(errs...)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.unregister(c)
	}
}

func (h *Hub) register(conn *websocket.Conn) *Client {
	c := &Client{
		ID:           uuid.NewString(),
		conn:         conn,
		writeTimeout: h.writeTimeout,
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("Client connected", zap.String("client_id", c.ID))
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("Client disconnected", zap.String("client_id", c.ID))
}

// snapshot copies the client list so writes happen outside the lock
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
