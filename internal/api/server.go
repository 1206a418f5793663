package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/archive"
	"github.com/biomed-dq-validator/internal/cache"
	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/middleware"
	"github.com/biomed-dq-validator/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	engine        *service.Engine
	store         archive.Store
	reports       *cache.ReportCache
	metrics       *Metrics
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	started       time.Time
}

// NewServer creates a new HTTP server instance. store and reports may be nil
// when archiving or caching is disabled.
func NewServer(
	configManager domain.ConfigManager,
	engine *service.Engine,
	store archive.Store,
	reports *cache.ReportCache,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	metrics := NewMetrics()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(metrics.Middleware())
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		engine:        engine,
		store:         store,
		reports:       reports,
		metrics:       metrics,
		logger:        logger,
		router:        router,
		started:       time.Now(),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": addr,
			"tls":  cfg.TLSEnabled,
		}).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/validate", s.handleValidate)
		v1.POST("/validate/quick", s.handleQuickValidate)
		v1.POST("/validate/clean", s.handleValidateAndClean)

		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.GET("/reports/:id/html", s.handleGetReportHTML)
		v1.GET("/reports/:id/summary", s.handleGetReportSummary)
		v1.DELETE("/reports/:id", s.handleDeleteReport)

		v1.GET("/ranges", s.handleListRanges)
		v1.POST("/ranges", s.handleAddRange)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"version":        service.EngineVersion,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"archive":        "disabled",
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.store.Count(ctx); err != nil {
			body["status"] = "degraded"
			body["archive"] = "unavailable"
		} else {
			body["archive"] = "ok"
		}
	}
	if s.reports != nil {
		body["cache"] = s.reports.Stats()
	}

	c.JSON(http.StatusOK, body)
}
