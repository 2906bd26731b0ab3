// Package api exposes the engine over HTTP. The core stays callable
// without it; this is the outer surface for non-Go callers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gosplit/app"
	"gosplit/internal"
)

// Server wires the engine, flag service and runner behind a gin router.
type Server struct {
	router *gin.Engine
	engine *app.Engine
	flags  *app.FlagService
	runner *app.Runner
	log    *internal.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(engine *app.Engine, flags *app.FlagService, runner *app.Runner, log *internal.Logger) *Server {
	s := &Server{
		router: gin.New(),
		engine: engine,
		flags:  flags,
		runner: runner,
		log:    log.Named("api"),
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Router exposes the underlying handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")

	api.POST("/experiments", s.handleCreateExperiment)
	api.GET("/experiments", s.handleListExperiments)
	api.GET("/experiments/:id", s.handleGetExperiment)
	api.POST("/experiments/:id/start", s.handleTransition(s.engine.StartExperiment))
	api.POST("/experiments/:id/stop", s.handleTransition(s.engine.StopExperiment))
	api.POST("/experiments/:id/pause", s.handleTransition(s.engine.PauseExperiment))
	api.POST("/experiments/:id/resume", s.handleTransition(s.engine.ResumeExperiment))
	api.GET("/experiments/:id/variant", s.handleGetVariant)
	api.POST("/experiments/:id/track", s.handleTrackMetric)
	api.GET("/experiments/:id/results", s.handleGetResults)
	api.GET("/experiments/:id/report", s.handleGetReport)
	api.POST("/experiments/:id/run", s.handleRunExperiment)

	api.POST("/flags", s.handleCreateFlag)
	api.GET("/flags", s.handleListFlags)
	api.POST("/flags/:key/enable", s.handleToggleFlag(true))
	api.POST("/flags/:key/disable", s.handleToggleFlag(false))
	api.GET("/flags/:key/evaluate", s.handleEvaluateFlag)

	api.GET("/plan", s.handlePlan)
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("listening on %s", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
