package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/api/middleware"
	"github.com/supp-dex/instance-api/internal/api/rest"
	"github.com/supp-dex/instance-api/internal/logger"
	"github.com/supp-dex/instance-api/internal/ratelimit"
	"github.com/supp-dex/instance-api/internal/session"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	StaticDir    string
	Auth         middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	handler    rest.Handler
	sessions   *session.Manager
	limiter    ratelimit.Limiter
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, handler rest.Handler, sessions *session.Manager, limiter ratelimit.Limiter) *Server {
	return &Server{
		config:   cfg,
		handler:  handler,
		sessions: sessions,
		limiter:  limiter,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Setup REST routes
	rest.SetupRoutes(router, s.handler, rest.Middlewares{
		Session:   middleware.Session(s.sessions),
		RateLimit: middleware.RateLimit(s.limiter),
		Auth:      middleware.Auth(s.config.Auth),
	}, s.config.StaticDir)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting instance API server",
		zap.String("address", addr),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down instance API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
