package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/domain"
)

func newStub(t *testing.T, status int, body string, seen *map[string]any, calls *int32) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if seen != nil {
			m := map[string]any{"_path": r.URL.Path}
			_ = json.NewDecoder(r.Body).Decode(&m)
			m["_path"] = r.URL.Path
			*seen = m
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(config.ProviderConfig{BaseURL: srv.URL + "/", ImageModel: "dall-e-3", ChatModel: "gpt-4o-mini"})
}

var fox = domain.GenerationRequest{
	Prompt:  "a red fox in snow",
	Size:    domain.SizeSquare,
	Quality: domain.QualityStandard,
	Style:   domain.StyleVivid,
}

func TestGenerateImage_SuccessShapesRequest(t *testing.T) {
	var seen map[string]any
	c := newStub(t, 200, `{"data":[{"url":"X","revised_prompt":"Y"}]}`, &seen, nil)

	base := testutil.ToFloat64(upstreamReqs.WithLabelValues(opGenerate, outcomeOK))
	res, err := c.GenerateImage(context.Background(), "sk-test", fox)
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if res != (domain.GenerationResult{URL: "X", RevisedPrompt: "Y"}) {
		t.Fatalf("result = %+v", res)
	}

	if seen["_path"] != "/images/generations" || seen["model"] != "dall-e-3" ||
		seen["n"] != float64(1) || seen["response_format"] != "url" ||
		seen["prompt"] != fox.Prompt || seen["size"] != "1024x1024" ||
		seen["quality"] != "standard" || seen["style"] != "vivid" {
		t.Fatalf("unexpected outbound body: %#v", seen)
	}
	if got := testutil.ToFloat64(upstreamReqs.WithLabelValues(opGenerate, outcomeOK)); got != base+1 {
		t.Fatalf("ok counter = %v; want %v", got, base+1)
	}
}

func TestGenerateImage_RevisedPromptFallback(t *testing.T) {
	c := newStub(t, 200, `{"data":[{"url":"X"}]}`, nil, nil)
	res, err := c.GenerateImage(context.Background(), "sk-test", fox)
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if res.RevisedPrompt != fox.Prompt {
		t.Fatalf("revised prompt = %q; want original", res.RevisedPrompt)
	}

	// An explicit empty string is a supplied value, not an omission.
	c = newStub(t, 200, `{"data":[{"url":"X","revised_prompt":""}]}`, nil, nil)
	res, _ = c.GenerateImage(context.Background(), "sk-test", fox)
	if res.RevisedPrompt != "" {
		t.Fatalf("revised prompt = %q; want empty", res.RevisedPrompt)
	}
}

func TestGenerateImage_EmptyData(t *testing.T) {
	c := newStub(t, 200, `{"data":[]}`, nil, nil)
	if _, err := c.GenerateImage(context.Background(), "sk-test", fox); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v; want ErrNoImage", err)
	}
}

func TestUpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"provider message", 400, `{"error":{"message":"Your request was rejected"}}`, "Your request was rejected"},
		{"unparseable body", 502, `<html>bad gateway</html>`, "OpenAI API error: 502"},
		{"empty message", 429, `{"error":{"message":""}}`, "OpenAI API error: 429"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newStub(t, tc.status, tc.body, nil, nil)
			_, err := c.GenerateImage(context.Background(), "sk-test", fox)
			var ue *UpstreamError
			if !errors.As(err, &ue) || ue.Status != tc.status || ue.Message != tc.want {
				t.Fatalf("err = %#v; want status %d message %q", err, tc.status, tc.want)
			}
			if _, err := c.CompleteChat(context.Background(), "sk-test", "p"); err == nil || err.Error() != tc.want {
				t.Fatalf("chat err = %v; want %q", err, tc.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.ProviderConfig{BaseURL: url, ImageModel: "dall-e-3"})
	_, err := c.GenerateImage(context.Background(), "sk-test", fox)
	var ue *UpstreamError
	if err == nil || errors.As(err, &ue) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}

func TestCompleteChat_ShapesRequestAndTrims(t *testing.T) {
	var seen map[string]any
	c := newStub(t, 200, `{"choices":[{"message":{"content":"  A vivid cat.\n"}}]}`, &seen, nil)

	got, err := c.CompleteChat(context.Background(), "sk-test", "a cat")
	if err != nil || got != "A vivid cat." {
		t.Fatalf("CompleteChat = %q, %v", got, err)
	}
	if seen["_path"] != "/chat/completions" || seen["model"] != "gpt-4o-mini" ||
		seen["max_tokens"] != float64(300) || seen["temperature"] != 0.7 {
		t.Fatalf("unexpected outbound body: %#v", seen)
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %#v", seen["messages"])
	}
	sys := msgs[0].(map[string]any)
	usr := msgs[1].(map[string]any)
	if sys["role"] != "system" || !strings.Contains(sys["content"].(string), "under 500 characters") ||
		usr["role"] != "user" || usr["content"] != "a cat" {
		t.Fatalf("messages = %#v", msgs)
	}
}

func TestCompleteChat_NoChoices(t *testing.T) {
	c := newStub(t, 200, `{"choices":[]}`, nil, nil)
	got, err := c.CompleteChat(context.Background(), "sk-test", "a cat")
	if err != nil || got != "" {
		t.Fatalf("CompleteChat = %q, %v; want empty, nil", got, err)
	}
}

func TestDecodeError(t *testing.T) {
	var calls int32
	c := newStub(t, 200, `{not json`, nil, &calls)
	if _, err := c.CompleteChat(context.Background(), "sk-test", "x"); err == nil ||
		!strings.Contains(err.Error(), "decode response") {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d; want exactly one (no retry)", calls)
	}
}

func TestCalls_RecordClientSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	orig := tracer
	tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")
	t.Cleanup(func() { tracer = orig })

	c := newStub(t, 200, `{"data":[{"url":"X"}],"choices":[{"message":{"content":"E"}}]}`, nil, nil)
	if _, err := c.GenerateImage(context.Background(), "sk-test", fox); err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if _, err := c.CompleteChat(context.Background(), "sk-test", "p"); err != nil {
		t.Fatalf("CompleteChat error: %v", err)
	}

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(ended))
	}
	for i, want := range []string{"provider.generate_image", "provider.complete_chat"} {
		if ended[i].Name() != want || ended[i].SpanKind() != trace.SpanKindClient {
			t.Errorf("span %d = %s/%v, want %s/client", i, ended[i].Name(), ended[i].SpanKind(), want)
		}
	}
}
