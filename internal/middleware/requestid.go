package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextRequestID is the key for the request ID in gin context.
const ContextRequestID = "request_id"

// headerRequestID propagates the ID to callers and downstream services.
const headerRequestID = "X-Request-Id"

// RequestID returns middleware that accepts an incoming X-Request-Id or
// generates one, storing it in the context and echoing it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}
