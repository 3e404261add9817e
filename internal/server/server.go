// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lumen-tv/lumen/internal/api"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/config"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/logger"
	"github.com/lumen-tv/lumen/internal/metrics"
	"github.com/lumen-tv/lumen/internal/middleware"
	"github.com/lumen-tv/lumen/internal/playout"
	"github.com/lumen-tv/lumen/internal/schedule"
)

// Server represents the HTTP server
type Server struct {
	config          *config.Config
	db              *db.DB
	repos           *db.Repositories
	metrics         *metrics.Metrics
	channelService  *channel.Service
	scheduleService *schedule.Service
	resolver        *playout.Resolver
	sync            *playout.SyncCoordinator
	router          *gin.Engine
	server          *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, database *db.DB) *Server {
	repos := db.NewRepositories(database)
	m := metrics.New()
	channelService := channel.NewService(repos)
	scheduleService := schedule.NewService(database, repos, m)
	resolver := playout.NewResolver(repos, scheduleService, m)
	syncCoordinator := playout.NewSyncCoordinator(repos, scheduleService)

	return &Server{
		config:          cfg,
		db:              database,
		repos:           repos,
		metrics:         m,
		channelService:  channelService,
		scheduleService: scheduleService,
		resolver:        resolver,
		sync:            syncCoordinator,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)
	s.router.Use(metrics.RequestMiddleware(s.metrics))

	// Playout engine poll endpoints at the root
	api.SetupWebhookRoutes(s.router, s.channelService, s.resolver, s.sync, s.metrics)

	// Prometheus scrape endpoint
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Administrative API route group
	apiGroup := s.router.Group("/api")

	api.SetupHealthRoutes(apiGroup, s.db)
	api.SetupChannelRoutes(apiGroup, s.channelService, s.scheduleService, s.resolver)
	api.SetupVODRoutes(apiGroup, s.repos)
	api.SetupScheduleRoutes(apiGroup, s.scheduleService)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.setupRouter()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
