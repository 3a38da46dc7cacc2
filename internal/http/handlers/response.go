// Package handlers serves the image-studio JSON API: POST /generate and
// POST /enhance under the configured base path.
//
// Every failure leaves through fail, so clients always see the same
// envelope:
//
//	HTTP/1.1 500 Internal Server Error
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_configured",
//	  "error": "OPENAI_API_KEY is not configured"
//	}
//
// Clients read "error" for the message to display; "code" is stable and
// listed in errors.go.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-image-studio/internal/http/middleware"
)

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, when one was assigned.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Machine-readable code from errors.go.
	Code string `json:"code" example:"validation_failed"`
	// Message suitable for display.
	Message string `json:"error" example:"Prompt is required"`
}

// fail writes the envelope and aborts the chain. Server-side failures are
// logged on the request logger; client mistakes are already visible in the
// access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer unmatched routes and methods with the same
// envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }
