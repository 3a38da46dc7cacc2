// Package services defines the business logic behind the generation and
// enhancement endpoints. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
// Validation failures are *validation.Error and provider failures are
// *provider.UpstreamError; neither is wrapped here.
package services

import "errors"

var (
	// ErrNotConfigured is returned before any outbound call when the provider
	// credential is missing or still the documented placeholder.
	ErrNotConfigured = errors.New("OPENAI_API_KEY is not configured")

	// ErrEnhanceFailed is returned when the completion produced no usable text.
	ErrEnhanceFailed = errors.New("Failed to enhance prompt")
)
