// Package provider is the HTTP client for the upstream image-generation and
// text-completion APIs.
//
// One outbound request per call: no retry, caching or deduplication. Every
// GenerateImage call is billed and computed fresh by the provider. Non-success responses become an
// *UpstreamError carrying the provider's own message when its error body can
// be parsed, or a generic "OpenAI API error: <status>" otherwise.
//
// Each call opens an OpenTelemetry span and records Prometheus counters and
// latency histograms labelled by operation.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/domain"
)

var tracer = otel.Tracer("image-studio/provider")

// EnhanceInstruction is the fixed system turn sent with every enhancement.
const EnhanceInstruction = "You are an expert at writing prompts for DALL-E 3 image generation. " +
	"Given a user's basic prompt, enhance it with vivid details, artistic style, lighting, " +
	"composition, and mood to produce a more compelling image. Keep the enhanced prompt under " +
	"500 characters. Return ONLY the enhanced prompt text, nothing else."

// Completion sampling parameters.
const (
	EnhanceMaxTokens   = 300
	EnhanceTemperature = 0.7
)

// ErrNoImage is returned when a successful response carries no result item.
var ErrNoImage = errors.New("OpenAI API returned no image")

// UpstreamError is a non-success response from the provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

// Client calls the provider endpoints under BaseURL.
type Client struct {
	baseURL    string
	imageModel string
	chatModel  string
	httpClient *http.Client
}

// New builds a Client from the provider configuration. A zero Timeout keeps
// the transport default (no client-side deadline).
func New(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		imageModel: cfg.ImageModel,
		chatModel:  cfg.ChatModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	Style          string `json:"style"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL           string  `json:"url"`
		RevisedPrompt *string `json:"revised_prompt"`
	} `json:"data"`
}

// GenerateImage requests exactly one URL-format image for req.
//
// The revised prompt falls back to req.Prompt when the provider omits it.
func (c *Client) GenerateImage(ctx context.Context, apiKey string, req domain.GenerationRequest) (domain.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "provider.generate_image", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("image.model", c.imageModel),
		attribute.String("image.size", string(req.Size)),
		attribute.String("image.quality", string(req.Quality)),
		attribute.String("image.style", string(req.Style)),
		attribute.Int("prompt.length", len(req.Prompt)),
	)

	body := imageRequest{
		Model:          c.imageModel,
		Prompt:         req.Prompt,
		N:              1,
		Size:           string(req.Size),
		Quality:        string(req.Quality),
		Style:          string(req.Style),
		ResponseFormat: "url",
	}
	var out imageResponse
	if err := c.post(ctx, opGenerate, "/images/generations", apiKey, body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.GenerationResult{}, err
	}
	if len(out.Data) == 0 {
		span.SetStatus(codes.Error, ErrNoImage.Error())
		return domain.GenerationResult{}, ErrNoImage
	}

	res := domain.GenerationResult{URL: out.Data[0].URL, RevisedPrompt: req.Prompt}
	if rp := out.Data[0].RevisedPrompt; rp != nil {
		res.RevisedPrompt = *rp
	}
	return res, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteChat sends prompt as the sole user turn after EnhanceInstruction and
// returns the first choice's content, trimmed. An empty string means the
// provider produced nothing usable.
func (c *Client) CompleteChat(ctx context.Context, apiKey, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "provider.complete_chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.model", c.chatModel),
		attribute.Int("prompt.length", len(prompt)),
	)

	body := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: EnhanceInstruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   EnhanceMaxTokens,
		Temperature: EnhanceTemperature,
	}
	var out chatResponse
	if err := c.post(ctx, opComplete, "/chat/completions", apiKey, body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// post marshals in, sends it to path, and decodes a 2xx body into out.
func (c *Client) post(ctx context.Context, op, path, apiKey string, in, out any) error {
	start := time.Now()
	outcome := outcomeOK
	defer func() {
		upstreamReqs.WithLabelValues(op, outcome).Inc()
		upstreamLat.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		outcome = outcomeTransport
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		outcome = outcomeTransport
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		outcome = outcomeTransport
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeUpstream
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &UpstreamError{Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = outcomeDecode
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the provider's error.message and falls back to a
// status-only message.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fmt.Sprintf("OpenAI API error: %d", status)
}
