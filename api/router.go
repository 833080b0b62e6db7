package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/api/handler"
	"github.com/use-agent/pagent/api/middleware"
	"github.com/use-agent/pagent/cleaner"
	"github.com/use-agent/pagent/config"
	"github.com/use-agent/pagent/engine"
	"github.com/use-agent/pagent/provenance"
	"github.com/use-agent/pagent/registry"
	"github.com/use-agent/pagent/snapshot"
	"github.com/use-agent/pagent/store"
)

// Deps bundles the services the router wires into handlers.
type Deps struct {
	Store      *store.Store
	Snapshots  *snapshot.Service
	Registry   *registry.Service
	Engine     *engine.Engine
	Provenance *provenance.Service
	Cleaner    *cleaner.Cleaner
	Fetcher    handler.Fetcher
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(deps.Store, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.Keys))
	} else {
		protected.Use(middleware.Auth(nil))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Pages
	protected.POST("/pages", handler.CreatePage(deps.Store))
	protected.GET("/pages", handler.ListPages(deps.Store))
	protected.DELETE("/pages/:id", handler.DeletePage(deps.Store))

	// Snapshots
	protected.POST("/pages/:id/snapshots", handler.CreateSnapshot(deps.Snapshots))
	protected.POST("/pages/:id/capture", handler.CaptureSnapshot(deps.Snapshots, deps.Store, deps.Fetcher))
	protected.GET("/pages/:id/snapshots", handler.ListSnapshots(deps.Snapshots))
	protected.GET("/pages/:id/snapshots/:snapshotId", handler.GetSnapshot(deps.Snapshots, deps.Cleaner))

	// Definitions (learn / retrain)
	protected.POST("/pages/:id/definitions", handler.Learn(deps.Registry))
	protected.GET("/pages/:id/definitions", handler.ListDefinitions(deps.Registry))
	protected.POST("/definitions/:id/retrain", handler.Retrain(deps.Registry))

	// Runs (execute)
	protected.POST("/definitions/:id/runs", handler.Execute(deps.Engine))
	protected.GET("/definitions/:id/runs", handler.ListRuns(deps.Engine))

	// Provenance
	protected.GET("/runs/:id/lineage", handler.Lineage(deps.Provenance))
	protected.GET("/snapshots/:id/definitions", handler.DefinitionsForSnapshot(deps.Provenance))
	protected.GET("/pages/:id/drift-report", handler.DriftReport(deps.Provenance))

	return r
}
