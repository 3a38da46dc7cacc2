package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessLines decodes every "http_request" line in buf.
func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		if m["message"] == "http_request" {
			out = append(out, m)
		}
	}
	return out
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{" x-api-key "}}))
	r.GET("/images/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000&key=sk-abcdef1234567890"
	req := httptest.NewRequest(http.MethodGet, "/images/42?"+q, nil)
	req.Header.Set("Authorization", "Bearer sk-live-secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := accessLines(t, buf)
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, "info", l["level"])
	assert.Equal(t, "/images/:id", l["path"])
	assert.Equal(t, "rid-resp", l["request_id"])

	query := l["query"].(string)
	assert.NotContains(t, query, "sk-abcdef1234567890")
	for _, tag := range []string{"[REDACTED:key]", "[REDACTED:email]", "[REDACTED:phone]", "[REDACTED:id]"} {
		assert.Contains(t, query, tag)
	}

	h := l["headers"].(map[string]any)
	assert.Equal(t, "[REDACTED]", h["Authorization"])
	assert.Equal(t, "[REDACTED]", h["Cookie"])
	assert.Equal(t, "[REDACTED]", h["X-Api-Key"])
	assert.Equal(t, "email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]", h["X-Custom"])
	assert.NotContains(t, buf.String(), "topsecret")
}

func TestRedactingLogger_LevelsAndRequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/noted", func(c *gin.Context) {
		_ = c.Error(errors.New("provider timeout"))
		c.Status(http.StatusOK)
	})

	for _, p := range []string{"/missing", "/broken", "/noted"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set("X-Request-ID", "rid"+p)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := accessLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "rid/missing", lines[0]["request_id"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Contains(t, lines[2]["errors"], "provider timeout")
}

func TestScrubber_Text(t *testing.T) {
	s := newScrubber(nil)
	assert.Equal(t, "", s.text(""))
	assert.Equal(t, "size=1024x1024&quality=hd", s.text("size=1024x1024&quality=hd"))
	assert.Equal(t, "token [REDACTED:key]", s.text("token sk-proj_ABCDEFGH12"))
}
