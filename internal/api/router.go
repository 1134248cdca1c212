package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
	"github.com/queryhawk/queryhawk/internal/middleware"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Registry    *metrics.Registry
	Exporters   ExporterManager
	Pollers     PollerSupervisor
	Plans       PlanRunner
	QueryStore  QueryMetricsStore
	CORSOrigins []string
	Version     string
}

// maxBodySize limits request bodies; the largest legitimate payload is one
// SQL query.
const maxBodySize = 1 << 20 // 1 MB

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.Instrument(deps.Registry, deps.Log))

	// Exposition endpoint for the collector (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(deps.Registry.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Exporters, log, deps.Version)
	monitoring := NewMonitoringHandler(deps.Pollers, deps.Registry, log)
	exporters := NewExporterHandler(deps.Exporters, deps.Pollers, log)
	queries := NewQueryHandler(deps.Plans, deps.QueryStore, log)

	api.GET("/health", health.Liveness)

	// Direct-polling monitoring session.
	api.POST("/monitoring/connect", monitoring.Connect)
	api.POST("/monitoring/disconnect", monitoring.Disconnect)

	// Per-user exporter lifecycle.
	api.POST("/exporters/start", exporters.Start)
	api.POST("/exporters/stop", exporters.Stop)

	// Ad-hoc query analysis.
	api.POST("/queries/metrics", queries.Analyze)
}

// NewRouter creates and configures the Gin engine with all middleware and
// routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r.Group("/api/v1"), deps)

	return r
}
