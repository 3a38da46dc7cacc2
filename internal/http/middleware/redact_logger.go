package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions extends the built-in scrubbing of RedactingLogger.
//
// MaskHeaders names extra request headers whose values are replaced
// wholesale with "[REDACTED]". Names are matched case-insensitively and add
// to Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

type redactRule struct {
	re   *regexp.Regexp
	repl string
}

// Rules run in order. The phone pattern is the loosest and would eat the
// digit runs of keys and ids, so it goes last.
var redactRules = []redactRule{
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`), "[REDACTED:key]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// scrubber removes secrets and personal identifiers from request metadata.
type scrubber struct {
	masked map[string]struct{}
}

func newScrubber(extra []string) scrubber {
	s := scrubber{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.masked[h] = struct{}{}
		}
	}
	return s
}

func (scrubber) text(v string) string {
	for _, r := range redactRules {
		if v == "" {
			break
		}
		v = r.re.ReplaceAllString(v, r.repl)
	}
	return v
}

func (s scrubber) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := s.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = s.text(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger emits one structured "http_request" line per request and
// attaches the request-scoped logger returned by LoggerFrom.
//
// Bodies are never logged, which keeps prompts and revised prompts out of
// the access log. The query string and header values pass through the
// redaction rules, masked headers are dropped entirely, and the level follows
// the outcome: info, warn for 4xx, error for 5xx or collected Gin errors.
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-API-Key"},
//	}))
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	scrub := newScrubber(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := truncate(scrub.text(c.Request.URL.RawQuery), maxQueryLogLength)
		headers := scrub.headers(c.Request.Header)

		// RequestID, when mounted first, has already set the response header.
		rid := c.Writer.Header().Get(requestIDHeader)
		if rid == "" {
			rid = c.GetHeader(requestIDHeader)
		}
		lg := attachLogger(c, rid, path)

		c.Next()

		levelFor(lg, c).
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

func levelFor(lg *zerolog.Logger, c *gin.Context) *zerolog.Event {
	status := c.Writer.Status()
	switch {
	case len(c.Errors) > 0:
		return lg.Error().Str("errors", c.Errors.String())
	case status >= http.StatusInternalServerError:
		return lg.Error()
	case status >= http.StatusBadRequest:
		return lg.Warn()
	}
	return lg.Info()
}
