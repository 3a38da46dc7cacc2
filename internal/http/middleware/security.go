package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultHSTSMaxAge = 180 * 24 * time.Hour
	exposeHeader      = "Access-Control-Expose-Headers"
)

// SecurityOptions selects the optional header groups written by
// SecurityHeaders.
//
// EnableHSTS only takes effect on requests that arrived over HTTPS, either
// directly or through a proxy that sets X-Forwarded-Proto. HSTSMaxAge falls
// back to 180 days when zero or negative.
//
// NoStore marks responses as uncacheable. The API group sets it because
// generated image URLs are issued by the provider and may expire.
//
// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	EnablePolicy bool
}

type headerPair struct{ name, value string }

// SecurityHeaders writes a fixed hardening set on every response:
// nosniff, frame denial and no-referrer. The optional groups follow opt.
// When a request id has already been set on the response it is appended to
// Access-Control-Expose-Headers so browser code can read it.
//
// The header list is built once; the per-request work is a handful of Sets.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		static = append(static,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if opt.NoStore {
		static = append(static,
			headerPair{"Cache-Control", "no-store"},
			headerPair{"Pragma", "no-cache"},
			headerPair{"Expires", "0"},
		)
	}

	var hsts string
	if opt.EnableHSTS {
		age := opt.HSTSMaxAge
		if age <= 0 {
			age = defaultHSTSMaxAge
		}
		hsts = "max-age=" + strconv.Itoa(int(age.Seconds())) + "; includeSubDomains; preload"
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range static {
			h.Set(p.name, p.value)
		}
		if hsts != "" && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeRequestID(h)
		}
		c.Next()
	}
}

func exposeRequestID(h http.Header) {
	cur := h.Get(exposeHeader)
	switch {
	case cur == "":
		h.Set(exposeHeader, requestIDHeader)
	case !strings.Contains(cur, requestIDHeader):
		h.Set(exposeHeader, cur+", "+requestIDHeader)
	}
}

// isHTTPS reports whether r arrived over TLS or was forwarded as https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
