// Image studio HTTP handlers.
//
// This file wires the two proxy endpoints:
//   - POST {base}/generate   (one image per call)
//   - POST {base}/enhance    (prompt rewrite)
//
// Handlers are transport-thin: they read the raw body, hand it to the
// validation layer, call the application service, and translate results
// into HTTP responses.

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/provider"
	"github.com/tbourn/go-image-studio/internal/services"
	"github.com/tbourn/go-image-studio/internal/validation"
)

//
// Service contracts (context-aware)
//

// GenerationService produces one image per call.
//
// Implementations must honor the provided context for cancellation.
type GenerationService interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// EnhanceService rewrites a prompt.
type EnhanceService interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

//
// Handler wiring
//

// Handlers groups the proxy endpoints.
type Handlers struct {
	genSvc GenerationService
	enhSvc EnhanceService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(genSvc GenerationService, enhSvc EnhanceService) *Handlers {
	return &Handlers{genSvc: genSvc, enhSvc: enhSvc}
}

// readBody drains the request body. A body rejected by the size limiter
// becomes a 400.
func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, validation.MsgInvalidBody)
		return nil, false
	}
	return raw, true
}

// failFrom maps a service error to the response envelope.
//
//   - *validation.Error           → 400 validation_failed (bad_request for a malformed body)
//   - services.ErrNotConfigured   → 500 not_configured
//   - services.ErrEnhanceFailed   → 500 enhance_failed
//   - *provider.UpstreamError     → 500 upstream_error with the provider message
//   - anything else               → 500 upstream_error with the error text
func failFrom(c *gin.Context, err error) {
	var ve *validation.Error
	var ue *provider.UpstreamError
	switch {
	case errors.As(err, &ve):
		code := ErrCodeValidation
		if len(ve.Violations) == 1 &&
			(ve.Violations[0] == validation.MsgInvalidBody || ve.Violations[0] == validation.MsgNotObject) {
			code = ErrCodeBadRequest
		}
		fail(c, http.StatusBadRequest, code, ve.Error())
	case errors.Is(err, services.ErrNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, err.Error())
	case errors.Is(err, services.ErrEnhanceFailed):
		fail(c, http.StatusInternalServerError, ErrCodeEnhanceFailed, err.Error())
	case errors.As(err, &ue):
		fail(c, http.StatusInternalServerError, ErrCodeUpstream, ue.Message)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpstream, err.Error())
	}
}
