package handlers

// Error codes carried in ErrorResponse.Code. The generic ones mirror the
// status; the rest name failures the status alone cannot tell apart.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Key missing from the server environment.
	ErrCodeNotConfigured = "not_configured"
	// Provider rejected the call or could not be reached.
	ErrCodeUpstream = "upstream_error"
	// Completion produced no usable text.
	ErrCodeEnhanceFailed = "enhance_failed"
)
