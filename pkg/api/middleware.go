package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID propagates the caller's X-Request-ID or assigns a new one.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func requestIDOf(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	elapsed := time.Since(start)

	status := c.Writer.Status()
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveHTTP(c.Request.Method, c.FullPath(), status, elapsed)
	}
	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"elapsed", elapsed,
		"request_id", requestIDOf(c),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("api: request", attrs...)
		return
	}
	s.logger.Info("api: request", attrs...)
}

func (s *Server) recovery(c *gin.Context, err any) {
	s.logger.Error("api: panic", "path", c.Request.URL.Path, "error", err, "request_id", requestIDOf(c))
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
		Error:     "internal error",
		RequestID: requestIDOf(c),
	})
}
