package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loan-intake/internal/common/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  c.GetString("requestId"),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", fields)
		case c.Request.URL.Path == "/live" || c.Request.URL.Path == "/metrics":
			log.Debug("request handled", fields)
		default:
			log.Info("request handled", fields)
		}
	}
}

// CORS lets the browser form call the API from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		c.Header("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
