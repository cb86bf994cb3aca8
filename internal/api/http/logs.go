package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UILogEntry represents a log entry from the UI
type UILogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// UILogBatch represents a batch of logs from the UI
type UILogBatch struct {
	Entries []UILogEntry `json:"entries" binding:"required"`
}

// StreamLogs forwards a batch of UI log lines to the frontend logger
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req UILogBatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}

	for _, entry := range req.Entries {
		h.svc.LogAt(entry.Level, entry.Message, entryFields(entry)...)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

func entryFields(entry UILogEntry) []zap.Field {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	if entry.Timestamp != "" {
		fields = append(fields, zap.String("ui_timestamp", entry.Timestamp))
	}
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}
