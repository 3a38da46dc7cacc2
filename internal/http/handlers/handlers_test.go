package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/provider"
	"github.com/tbourn/go-image-studio/internal/services"
)

// ---------- test plumbing ----------

type stubGen struct {
	calls int
	got   domain.GenerationRequest
	res   domain.GenerationResult
	err   error
}

func (s *stubGen) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	s.calls++
	s.got = req
	return s.res, s.err
}

type stubEnh struct {
	calls int
	out   string
	err   error
}

func (s *stubEnh) Enhance(context.Context, string) (string, error) {
	s.calls++
	return s.out, s.err
}

func newRouter(gen GenerationService, enh EnhanceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(gen, enh)
	r.POST("/api/generate", h.Generate)
	r.POST("/api/enhance", h.Enhance)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return er
}

const foxBody = `{"prompt":"a red fox in snow","size":"1024x1024","quality":"standard","style":"vivid"}`

// ---------- Generate ----------

func TestGenerate_OK(t *testing.T) {
	gen := &stubGen{res: domain.GenerationResult{URL: "X", RevisedPrompt: "Y"}}
	w := post(newRouter(gen, &stubEnh{}), "/api/generate", foxBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"url":"X","revisedPrompt":"Y"}` {
		t.Fatalf("body=%s", got)
	}
	if gen.got.Prompt != "a red fox in snow" || gen.got.Size != domain.SizeSquare {
		t.Fatalf("service got %+v", gen.got)
	}
}

func TestGenerate_ValidationFailures_NoServiceCall(t *testing.T) {
	cases := []struct {
		name, body, code, msg string
	}{
		{"empty prompt", `{"prompt":"","size":"1024x1024","quality":"standard","style":"vivid"}`, ErrCodeValidation, "Prompt is required"},
		{"too long", `{"prompt":"` + strings.Repeat("a", 4001) + `","size":"1024x1024","quality":"standard","style":"vivid"}`, ErrCodeValidation, "Prompt must be 4000 characters or less"},
		{"bad enum", `{"prompt":"x","size":"1024x1024","quality":"ultra","style":"vivid"}`, ErrCodeValidation, "quality must be one of: standard, hd"},
		{"joined", `{"prompt":"","size":"1","quality":"standard","style":"vivid"}`, ErrCodeValidation, "Prompt is required, size must be one of: 1024x1024, 1024x1792, 1792x1024"},
		{"malformed", `{oops`, ErrCodeBadRequest, "invalid JSON body"},
		{"array", `[]`, ErrCodeBadRequest, "request body must be a JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGen{}
			w := post(newRouter(gen, &stubEnh{}), "/api/generate", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
			er := decodeErr(t, w)
			if er.Code != tc.code || er.Message != tc.msg {
				t.Fatalf("envelope=%+v", er)
			}
			if gen.calls != 0 {
				t.Fatalf("service called %d times", gen.calls)
			}
		})
	}
}

func TestGenerate_ServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
		msg  string
	}{
		{"not configured", services.ErrNotConfigured, ErrCodeNotConfigured, "OPENAI_API_KEY is not configured"},
		{"upstream", &provider.UpstreamError{Status: 400, Message: "content policy"}, ErrCodeUpstream, "content policy"},
		{"transport", errors.New("dial tcp: connection refused"), ErrCodeUpstream, "dial tcp: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(newRouter(&stubGen{err: tc.err}, &stubEnh{}), "/api/generate", foxBody)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status=%d", w.Code)
			}
			if er := decodeErr(t, w); er.Code != tc.code || er.Message != tc.msg {
				t.Fatalf("envelope=%+v", er)
			}
		})
	}
}

// ---------- Enhance ----------

func TestEnhance_OK(t *testing.T) {
	w := post(newRouter(&stubGen{}, &stubEnh{out: "A vivid cat"}), "/api/enhance", `{"prompt":"cat"}`)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"enhanced":"A vivid cat"}` {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestEnhance_Errors(t *testing.T) {
	enh := &stubEnh{}
	w := post(newRouter(&stubGen{}, enh), "/api/enhance", `{"prompt":""}`)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Message != "Prompt is required" || enh.calls != 0 {
		t.Fatalf("empty prompt: status=%d body=%s calls=%d", w.Code, w.Body.String(), enh.calls)
	}

	w = post(newRouter(&stubGen{}, &stubEnh{err: services.ErrEnhanceFailed}), "/api/enhance", `{"prompt":"cat"}`)
	if er := decodeErr(t, w); w.Code != http.StatusInternalServerError || er.Code != ErrCodeEnhanceFailed || er.Message != "Failed to enhance prompt" {
		t.Fatalf("enhance failed: status=%d envelope=%+v", w.Code, er)
	}

	w = post(newRouter(&stubGen{}, &stubEnh{err: services.ErrNotConfigured}), "/api/enhance", `{"prompt":"cat"}`)
	if er := decodeErr(t, w); w.Code != http.StatusInternalServerError || er.Code != ErrCodeNotConfigured {
		t.Fatalf("not configured: status=%d envelope=%+v", w.Code, er)
	}
}

func TestBodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	})
	gen := &stubGen{}
	r.POST("/api/generate", New(gen, &stubEnh{}).Generate)

	w := post(r, "/api/generate", foxBody)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Message != "request body too large" || gen.calls != 0 {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
