// Package httpapi assembles the image-studio API server: the middleware
// chain, the operational endpoints (/health, /metrics, optional Swagger UI)
// and the two proxy endpoints under the configured base path.
//
// Generation is neither deduplicated nor rate limited; every accepted POST
// reaches the provider.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-image-studio/internal/config"
	"github.com/tbourn/go-image-studio/internal/docs"
	"github.com/tbourn/go-image-studio/internal/http/handlers"
	"github.com/tbourn/go-image-studio/internal/http/middleware"
	"github.com/tbourn/go-image-studio/internal/provider"
	"github.com/tbourn/go-image-studio/internal/services"
)

// maxBodyBytes caps request bodies. A maximal prompt is far below it.
const maxBodyBytes = 1 << 20

// RegisterRoutes mounts everything on r. Global middleware runs in this
// order: tracing, request id, access log, recovery, body limit, metrics,
// CORS, security headers. The API group adds gzip and no-store caching.
func RegisterRoutes(r *gin.Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key", "OpenAI-Organization"},
		}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		middleware.Metrics(),
	)
	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	client := provider.New(cfg.Provider)
	h := handlers.New(
		services.NewGenerationService(cfg.Provider, client),
		services.NewEnhanceService(cfg.Provider, client),
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	// Provider image URLs may be time-limited.
	api.Use(gzip.Gzip(gzip.DefaultCompression), middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}))
	api.POST("/generate", h.Generate)
	api.POST("/enhance", h.Enhance)
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the listed ones. Credentials are never allowed.
func corsMiddleware(c config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowedOrigins) > 0 {
		base.AllowOrigins = c.AllowedOrigins
		return []gin.HandlerFunc{cors.New(base)}
	}
	base.AllowAllOrigins = true
	return []gin.HandlerFunc{
		// cors skips requests without an Origin header; plain clients and
		// health probes still get the wildcard.
		func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody makes body reads past maxBytes fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
