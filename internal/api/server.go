// Package api exposes the governor over HTTP: evaluation, policy callouts,
// audit and history inspection, rollback, scopes, flags, cache control, and
// the telemetry mirror. All routes return JSON and are guarded by an optional
// bearer token.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/metrics"
	"github.com/phantomos/governor/internal/telemetry"
	"github.com/phantomos/governor/internal/types"
)

// caplist validates that a field parses to at least one known capability.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("caplist", func(fl validator.FieldLevel) bool {
			return types.ParseCapabilities(fl.Field().String()) != 0
		})
	}
}

// APIServer handles HTTP API requests for the governor
type APIServer struct {
	gov     *governor.Governor
	storage *telemetry.Storage // nil when telemetry is disabled
	router  *gin.Engine
}

// NewAPIServer creates a new API server. storage may be nil.
func NewAPIServer(gov *governor.Governor, storage *telemetry.Storage, token string) *APIServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply middleware in order
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(BodySizeLimitMiddleware(MaxBodySize))
	router.Use(RequestLogMiddleware())

	s := &APIServer{
		gov:     gov,
		storage: storage,
		router:  router,
	}

	s.registerRoutes(token)
	return s
}

// Handler returns the HTTP handler for the API
func (s *APIServer) Handler() http.Handler {
	return s.router
}

func (s *APIServer) registerRoutes(token string) {
	// Health check and Prometheus scrape endpoint stay unauthenticated.
	s.router.GET("/health", s.handleHealth)

	registry := metrics.Register(s.gov)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	apiGroup := s.router.Group("/api")
	apiGroup.Use(TokenAuthMiddleware(token))
	{
		apiGroup.POST("/evaluate", s.handleEvaluate)
		apiGroup.POST("/check", s.handleCheck)
		apiGroup.POST("/verify", s.handleVerify)

		apiGroup.GET("/stats", s.handleStats)
		apiGroup.GET("/overview", s.handleOverview)

		apiGroup.GET("/history", s.handleHistory)
		apiGroup.POST("/history/:index/rollback", s.handleRollback)
		apiGroup.GET("/audit", s.handleAudit)

		apiGroup.GET("/flags", s.handleGetFlags)
		apiGroup.PUT("/flags", s.handleSetFlags)

		scopes := apiGroup.Group("/scopes")
		{
			scopes.GET("", s.handleListScopes)
			scopes.POST("", s.handleAddScope)
			scopes.DELETE("/:id", s.handleRemoveScope)
			scopes.POST("/cleanup", s.handleScopeCleanup)
			scopes.POST("/check", s.handleScopeCheck)
		}

		cache := apiGroup.Group("/cache")
		{
			cache.GET("", s.handleCacheStats)
			cache.POST("/clear", s.handleCacheClear)
			cache.DELETE("/:fingerprint", s.handleCacheInvalidate)
		}

		// Telemetry routes (if the mirror is enabled)
		if s.storage != nil {
			telemetryGroup := apiGroup.Group("/telemetry")
			{
				telemetryGroup.GET("/recent", s.handleTelemetryRecent)
				telemetryGroup.GET("/fingerprint/:fingerprint", s.handleTelemetryFingerprint)
				telemetryGroup.GET("/policies", s.handleTelemetryPolicies)
				telemetryGroup.POST("/export", s.handleTelemetryExport)
			}
		}
	}
}

// handleHealth handles GET /health
func (s *APIServer) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
