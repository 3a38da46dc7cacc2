// Package client calls the studio's own HTTP API (generate, enhance) and
// downloads generated assets to disk.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// Fallback messages when the server's error body carries none.
const (
	MsgGenerateFailed = "Failed to generate image"
	MsgEnhanceFailed  = "Failed to enhance prompt"
	MsgDownloadFailed = "Failed to download image"
)

// APIError is a non-2xx response from the studio API. Message is the
// server's "error" field, or the fallback for the operation.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string { return e.Message }

// Client talks to one studio server.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the API mounted at serverURL+basePath.
func New(serverURL, basePath string, timeout time.Duration) *Client {
	base := strings.TrimRight(serverURL, "/")
	if p := strings.Trim(basePath, "/"); p != "" {
		base += "/" + p
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}
}

// Generate posts req to /generate.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	var out domain.GenerationResult
	if err := c.post(ctx, "/generate", req, &out, MsgGenerateFailed); err != nil {
		return domain.GenerationResult{}, err
	}
	return out, nil
}

// Enhance posts prompt to /enhance and returns the rewritten prompt.
func (c *Client) Enhance(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Enhanced string `json:"enhanced"`
	}
	if err := c.post(ctx, "/enhance", map[string]string{"prompt": prompt}, &out, MsgEnhanceFailed); err != nil {
		return "", err
	}
	return out.Enhanced, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any, fallback string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw, fallback)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte, fallback string) *APIError {
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = fallback
	}
	return &APIError{Status: status, Code: body.Code, Message: msg, RequestID: body.RequestID}
}

// DownloadName is the file name used for an asset saved at t.
func DownloadName(t time.Time) string {
	return fmt.Sprintf("ai-image-%d.png", t.UnixMilli())
}

// Download fetches url and writes it into dir as DownloadName(now). It
// returns the written path.
func (c *Client) Download(ctx context.Context, url, dir string, now time.Time) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Message: MsgDownloadFailed}
	}

	path := filepath.Join(dir, DownloadName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
