// Package middleware holds the Gin middleware shared by the image-studio
// API: correlation ids, the redacting access logger, panic recovery,
// Prometheus instrumentation and response hardening headers.
//
// Mount order matters. RequestID goes first so that RedactingLogger and
// Recovery see the id, and RedactingLogger goes before Recovery so that a
// recovered panic is still logged with request fields.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	maxQueryLogLength = 2048
)

// RequestID reuses the caller's X-Request-ID or mints a UUID, then stores it
// under "requestID" and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// attachLogger stores a logger carrying request fields on the Gin context
// and on the request context, where services pick it up with log.Ctx.
func attachLogger(c *gin.Context, requestID, path string) *zerolog.Logger {
	l := log.With().
		Str("request_id", requestID).
		Str("method", c.Request.Method).
		Str("path", path).
		Logger()
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
	return &l
}

// Recovery turns a panic into a logged stack trace and, if nothing has been
// written yet, the standard internal_error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := c.GetString(requestIDKey)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"error":      "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request logger attached by RedactingLogger, or the
// global logger when none is attached. It never returns nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if lg, ok := c.Value(loggerKey).(*zerolog.Logger); ok {
		return lg
	}
	l := log.With().Logger()
	return &l
}

// truncate caps s at max bytes plus an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
