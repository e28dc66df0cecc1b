// Package httpapi is the demo transport (component L): thin gin middleware
// and handlers illustrating how the library surface is called. Transport is
// explicitly out of scope (§6) — every contract and invariant lives in the
// internal/validator, internal/registry, internal/vault, internal/ledger
// packages this merely wires up.
//
// ahwlsqja-go-stable ships this exact middleware/handler pair twice
// (internal/common/middleware + internal/middleware, internal/common/handler
// + internal/handler) — an English-commented version and a
// Korean-commented version of the same request-id/logger/response-envelope
// code, evidently left over from a refactor. This package merges them into
// one, keeping the English-commented version's naming (RespondOK/
// RespondCreated/RespondError, GetRequestID) since it is the more complete
// of the two (includes RespondNoContent, a SuccessResponse envelope).
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader is the header name clients may supply or read a
	// request id from.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID generates or extracts a request id for each request, for
// downstream handlers/logging/audit-log threading.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID extracts the request id set by RequestID.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Logger logs each request with structured fields, leveled by response
// status, the same shape as the teacher's middleware.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
