package services

import (
	"context"
	"strings"

	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/validation"
)

// ChatProvider is the outbound text-completion contract. The returned text
// is already trimmed.
type ChatProvider interface {
	CompleteChat(ctx context.Context, apiKey, prompt string) (string, error)
}

// EnhanceService rewrites a prompt with more vivid detail through a single
// completion call. A transient provider failure is surfaced as is.
type EnhanceService struct {
	Creds    Credentials
	Provider ChatProvider
}

// NewEnhanceService wires the service from the provider configuration.
func NewEnhanceService(cfg config.ProviderConfig, p ChatProvider) *EnhanceService {
	return &EnhanceService{Creds: cfg, Provider: p}
}

// Enhance returns the rewritten prompt or ErrEnhanceFailed when the
// completion is empty.
func (s *EnhanceService) Enhance(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "services.enhance")
	defer span.End()

	if err := validation.ValidatePrompt(prompt); err != nil {
		return "", err
	}
	key, ok := s.Creds.Credential()
	if !ok {
		return "", ErrNotConfigured
	}

	out, err := s.Provider.CompleteChat(ctx, key, prompt)
	if err != nil {
		return "", err
	}
	if out = strings.TrimSpace(out); out == "" {
		return "", ErrEnhanceFailed
	}
	return out, nil
}
