// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klinik/backend/internal/infrastructure/logger"
	"github.com/klinik/backend/internal/interfaces/http/handler"
	"github.com/klinik/backend/internal/interfaces/http/middleware"
)

// maxBodyBytes bounds request bodies. Registration payloads are small.
const maxBodyBytes = 1 << 20

// Config holds the router's middleware settings.
type Config struct {
	CORSAllowOrigins []string
	TracingEnabled   bool
}

// Handlers groups the handlers the router mounts.
type Handlers struct {
	Patient     *handler.PatientHandler
	Sync        *handler.SyncHandler
	Integration *handler.IntegrationHandler
	System      *handler.SystemHandler
}

// New builds the gin engine with the full middleware chain and all routes.
func New(cfg Config, log *zap.Logger, h Handlers) *gin.Engine {
	middleware.SetupValidator()

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.Recovery(log))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing())
		r.Use(middleware.SpanErrorMarker())
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORSAllowOrigins
	r.Use(middleware.CORSWithConfig(corsCfg))
	r.Use(middleware.Secure())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/healthz", h.System.Health)

	api := r.Group("/api")
	{
		api.POST("/patients", h.Patient.Register)

		syncGroup := api.Group("/sync")
		{
			// fixed paths must be registered alongside the :kind wildcard
			syncGroup.POST("/drain", h.Sync.Drain)
			syncGroup.POST("/patients/pull", h.Sync.PullPatients)
			syncGroup.POST("/formulary/pull", h.Sync.PullFormulary)
			syncGroup.GET("/jobs", h.Sync.Jobs)
			syncGroup.POST("/:kind/run", h.Sync.Run)
		}

		integration := api.Group("/integration")
		{
			integration.GET("/satusehat/patient/:nik", h.Integration.GetPatient)
			integration.GET("/satusehat/practitioner/:nik", h.Integration.GetPractitioner)
			integration.GET("/kfa/products", h.Integration.SearchProducts)
		}
	}

	return r
}
