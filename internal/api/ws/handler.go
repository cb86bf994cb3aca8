package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/midianimator/backend/internal/domain/protocol"
	"github.com/GriffinCanCode/midianimator/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/midianimator/backend/internal/shared/id"
)

// Transport labels command metrics for this package
const Transport = "ws"

// Message is an inbound frame
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	hub             *Hub
	dispatcher      *protocol.Dispatcher
	logger          *zap.Logger
	upgrader        websocket.Upgrader
	maxMessageBytes int64
}

// NewHandler creates a new WebSocket handler. maxMessageBytes bounds a single
// inbound frame; zero disables the limit.
func NewHandler(hub *Hub, dispatcher *protocol.Dispatcher, logger *logging.Logger, maxMessageBytes int64) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger.Named("ws"),
		upgrader: websocket.Upgrader{
			// The UI is served from a local webview origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		maxMessageBytes: maxMessageBytes,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := h.hub.register(conn)
	defer h.hub.unregister(client)

	reqCtx := c.Request.Context()

	h.send(client, map[string]interface{}{
		"type":      TypeSystem,
		"message":   "Connected to MIDIAnimator backend",
		"client_id": client.ID,
		"commands":  h.dispatcher.Commands(),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("WebSocket read error", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.hub.recordMessage("in", "malformed")
			h.sendError(client, "", "malformed frame: "+err.Error(), protocol.CodeBadRequest)
			continue
		}
		h.hub.recordMessage("in", msg.Type)

		switch msg.Type {
		case TypeInvoke:
			h.handleInvoke(reqCtx, client, msg)
		case TypePing:
			h.send(client, map[string]interface{}{"type": TypePong})
		default:
			h.sendError(client, msg.ID, "unknown message type", protocol.CodeBadRequest)
		}
	}
}

func (h *Handler) handleInvoke(ctx context.Context, client *Client, msg Message) {
	callID := msg.ID
	if callID == "" {
		callID = id.NewCallID().String()
	}

	result, err := h.dispatcher.Invoke(ctx, protocol.Call{
		Transport: Transport,
		Command:   msg.Command,
		Args:      msg.Args,
	})
	if err != nil {
		h.logger.Debug("Command failed",
			zap.String("client_id", client.ID),
			zap.String("call_id", callID),
			zap.String("command", msg.Command),
			zap.Error(err),
		)
		h.sendError(client, callID, err.Error(), protocol.ErrorCode(err))
		return
	}

	h.send(client, map[string]interface{}{
		"type":   TypeResponse,
		"id":     callID,
		"result": result,
	})
}

func (h *Handler) send(client *Client, data interface{}) {
	if err := client.send(data); err != nil {
		h.logger.Warn("WebSocket write failed", zap.String("client_id", client.ID), zap.Error(err))
		return
	}
	if frame, ok := data.(map[string]interface{}); ok {
		if t, ok := frame["type"].(string); ok {
			h.hub.recordMessage("out", t)
		}
	}
}

func (h *Handler) sendError(client *Client, callID, message, code string) {
	frame := map[string]interface{}{
		"type":    TypeError,
		"message": message,
		"code":    code,
	}
	if callID != "" {
		frame["id"] = callID
	}
	h.send(client, frame)
}
