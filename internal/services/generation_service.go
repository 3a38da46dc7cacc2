package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/validation"
)

var tracer = otel.Tracer("image-studio/services")

// ImageProvider is the outbound image-generation contract.
type ImageProvider interface {
	GenerateImage(ctx context.Context, apiKey string, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// Credentials reports the provider key and whether it is usable.
// config.ProviderConfig satisfies it.
type Credentials interface {
	Credential() (string, bool)
}

// GenerationService validates a request, checks the credential, and makes
// exactly one provider call. There is no caching of identical prompts.
type GenerationService struct {
	Creds    Credentials
	Provider ImageProvider
}

// NewGenerationService wires the service from the provider configuration.
func NewGenerationService(cfg config.ProviderConfig, p ImageProvider) *GenerationService {
	return &GenerationService{Creds: cfg, Provider: p}
}

// Generate returns the provider's result for req.
//
// Validation and configuration errors short-circuit before any network call.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "services.generate")
	defer span.End()

	if err := validation.ValidateGenerate(req); err != nil {
		return domain.GenerationResult{}, err
	}
	key, ok := s.Creds.Credential()
	if !ok {
		return domain.GenerationResult{}, ErrNotConfigured
	}

	res, err := s.Provider.GenerateImage(ctx, key, req)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	span.SetAttributes(attribute.Bool("result.revised", res.RevisedPrompt != req.Prompt))
	log.Ctx(ctx).Debug().
		Str("size", string(req.Size)).
		Str("quality", string(req.Quality)).
		Str("style", string(req.Style)).
		Int("prompt_len", len(req.Prompt)).
		Msg("image generated")
	return res, nil
}
