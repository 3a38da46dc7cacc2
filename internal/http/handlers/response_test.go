package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeRouter(rid string, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", rid)
		if logger != nil {
			c.Set("logger", logger)
		}
		c.Next()
	})
	return r
}

func TestFail_ServerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := envelopeRouter("rid-500", &logger)
	r.POST("/generate", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "OPENAI_API_KEY is not configured")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, map[string]any{
		"request_id": "rid-500",
		"code":       ErrCodeNotConfigured,
		"error":      "OPENAI_API_KEY is not configured",
	}, raw)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestFail_ClientErrorIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := envelopeRouter("rid-404", &logger)
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
	assert.Equal(t, ErrorResponse{RequestID: "rid-404", Code: ErrCodeNotFound, Message: "route not found"}, er)
	assert.Empty(t, buf.String())
}

func TestFail_OmitsMissingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusBadRequest, ErrCodeValidation, "Prompt is required") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotContains(t, w.Body.String(), "request_id")
}

func TestOK(t *testing.T) {
	r := envelopeRouter("rid", nil)
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"enhanced": "a vivid fox"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enhanced":"a vivid fox"}`, w.Body.String())
}
