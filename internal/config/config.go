// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings such as
// server timeouts, logging, the provider credential and endpoints, the
// history storage backend, and observability.
package config

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PlaceholderAPIKey is the sample value shipped in example env files. It is
// treated exactly like a missing key.
const PlaceholderAPIKey = "your_openai_api_key_here"

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "image-studio")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ProviderConfig holds the upstream image and text-completion settings.
type ProviderConfig struct {
	APIKey     string        // OPENAI_API_KEY
	BaseURL    string        // OPENAI_BASE_URL
	ImageModel string        // OPENAI_IMAGE_MODEL
	ChatModel  string        // OPENAI_CHAT_MODEL
	Timeout    time.Duration // UPSTREAM_TIMEOUT; 0 keeps the transport default
}

// Credential returns the API key and whether it is usable. An empty key or
// the documented placeholder both count as "not configured".
func (p ProviderConfig) Credential() (string, bool) {
	k := strings.TrimSpace(p.APIKey)
	if k == "" || k == PlaceholderAPIKey {
		return "", false
	}
	return k, true
}

// HistoryConfig selects where the client-side generation history lives.
type HistoryConfig struct {
	Backend       string // file|sqlite|redis|memory
	Path          string // file or sqlite path
	Key           string // slot name
	Limit         int    // maximum retained items
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // image generation can take a minute
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Upstream provider
	Provider ProviderConfig

	// Client side
	ServerURL string // where the CLI reaches the API
	History   HistoryConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	backend := strings.ToLower(getenv("HISTORY_BACKEND", "file"))
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Upstream provider
		Provider: ProviderConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    strings.TrimRight(getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			ImageModel: getenv("OPENAI_IMAGE_MODEL", "dall-e-3"),
			ChatModel:  getenv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Timeout:    getdur("UPSTREAM_TIMEOUT", 0),
		},

		// Client side
		ServerURL: strings.TrimRight(getenv("STUDIO_SERVER_URL", "http://localhost:8080"), "/"),
		History: HistoryConfig{
			Backend:       backend,
			Path:          getenv("HISTORY_PATH", defaultHistoryPath(backend)),
			Key:           getenv("HISTORY_KEY", "ai-image-studio-history"),
			Limit:         getint("HISTORY_LIMIT", 50),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getint("REDIS_DB", 0),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "image-studio"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if !oneOf(cfg.GinMode, "debug", "release", "test") {
		cfg.GinMode = "release"
	}
	return cfg, cfg.validate()
}

// validate reports the first violated constraint.
func (c Config) validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
			"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(c.Port) != "", "PORT must not be empty"},
		{c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
			"timeouts must be positive durations"},
		{c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0"},
		{c.Provider.Timeout >= 0, "UPSTREAM_TIMEOUT must be >= 0"},
		{strings.HasPrefix(c.Provider.BaseURL, "http://") || strings.HasPrefix(c.Provider.BaseURL, "https://"),
			"OPENAI_BASE_URL must be an http(s) URL"},
		{oneOf(c.History.Backend, "file", "sqlite", "redis", "memory"),
			"HISTORY_BACKEND must be one of: file, sqlite, redis, memory"},
		{strings.TrimSpace(c.History.Key) != "", "HISTORY_KEY must not be empty"},
		{c.History.Limit >= 1, "HISTORY_LIMIT must be >= 1"},
		{c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0"},
		{c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return errors.New(ch.msg)
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool { return slices.Contains(allowed, v) }

func defaultHistoryPath(backend string) string {
	if backend == "sqlite" {
		return "imagestudio-history.db"
	}
	return "imagestudio-history.json"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// lookup parses k with parse, falling back to def when k is unset, empty or
// malformed.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if out, err := parse(v); err == nil {
		return out
	}
	return def
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return lookup(k, def, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
