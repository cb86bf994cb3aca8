package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures command duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	command   string
	transport string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, command, transport string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		command:   command,
		transport: transport,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordCommand(t.command, t.transport, status, time.Since(t.start))
}
