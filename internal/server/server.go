// Package server exposes the transforms and the settings store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/processor"
	"github.com/rezonia/pohoda-xml/internal/settings"
)

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxUploadSize  int64
	RateLimitRPS   float64
	RateLimitBurst int
	Debug          bool
}

// SettingsProvider serves and updates the transform settings
type SettingsProvider interface {
	Settings(ctx context.Context) (*config.Settings, error)
	List(ctx context.Context) ([]settings.Setting, error)
	Update(ctx context.Context, values map[string]string) ([]string, error)
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	settings SettingsProvider
	logger   *slog.Logger
	limiter  *rateLimiter
}

// NewServer creates a new API server
func NewServer(cfg *Config, pipeline *processor.Pipeline, provider SettingsProvider, logger *slog.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 10 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:   cfg,
		router:   router,
		pipeline: pipeline,
		settings: provider,
		logger:   logger,
	}
	router.Use(s.requestContext(), s.requestLogger())
	if cfg.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Settings
		v1.GET("/settings", s.handleListSettings)
		v1.PUT("/settings", s.handleUpdateSettings)

		// Document endpoints, rate limited
		docs := v1.Group("")
		if s.limiter != nil {
			docs.Use(s.limiter.Limit())
		}
		docs.POST("/invoices/transform", s.handleTransformInvoice)
		docs.POST("/receipts/convert", s.handleConvertReceipt)
		docs.POST("/detect", s.handleDetect)
	}
}

// Run starts the HTTP server and shuts it down when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
