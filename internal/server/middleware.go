package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spigell/resource-recommender/internal/logger"
	"go.uber.org/zap"
)

const (
	requestIDHeader    = "X-Request-Id"
	requestIDKey       = "request_id"
	maxRequestIDLength = 128
)

// RequestID ensures every request has a stable request id.
// The incoming X-Request-Id header is reused when it is at most 128 printable
// ASCII characters, otherwise a new one is generated. The id is echoed back, and a logger scoped to it is put
// into the request context for the handlers and the services below them.
func RequestID(log *zap.Logger) gin.HandlerFunc {
	log = logger.WithFields(log)

	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)

		scoped := logger.WithRequestID(log, rid)
		c.Request = c.Request.WithContext(logger.Into(c.Request.Context(), scoped))

		start := time.Now()
		c.Next()

		scoped.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func validRequestID(rid string) bool {
	if rid == "" || len(rid) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] < 0x20 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}
