package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/midianimator/backend/internal/shared/id"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key for the request ID
const requestIDKey = "request_id"

const maxRequestIDLen = 128

// RequestID stamps every request with an ID. An incoming X-Request-ID is kept
// when it is a ULID, bare or prefixed; otherwise a new one is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if len(reqID) > maxRequestIDLen || !id.IsValid(reqID) {
			reqID = id.NewRequestID().String()
		}

		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}

// GetRequestID returns the request ID stored by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
