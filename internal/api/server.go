// Package api assembles the HTTP control plane: event ingestion, dead-letter
// review and connector diagnostics.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formflux/formflux/internal/api/handlers"
	"github.com/formflux/formflux/internal/api/middleware"
	"github.com/formflux/formflux/internal/deadletter"
	"github.com/formflux/formflux/internal/deliveries"
	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/logging"
	"github.com/formflux/formflux/internal/triggers"
	"github.com/formflux/formflux/pkg/clock"
	"github.com/formflux/formflux/pkg/config"
)

// Dependencies carries the wired services the API exposes. The caller owns
// their lifecycle; the server only routes to them.
type Dependencies struct {
	DB          *sql.DB
	Triggers    *triggers.Service
	DeadLetters *deadletter.Service
	Deliveries  *deliveries.Service
	Gateway     *gateway.Gateway
	Events      handlers.EventEnqueuer
	Replays     deadletter.Enqueuer
	Clock       clock.Clock
}

// Server orchestrates HTTP routing for the API service.
type Server struct {
	config config.App
	logger logging.Logger
	router *gin.Engine
	deps   Dependencies
}

// NewServer wires the API routes around the provided dependencies.
func NewServer(cfg config.App, logger logging.Logger, deps Dependencies) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}

	server := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	server.setupRouter()
	return server
}

// setupRouter configures the gin router with middleware and routes.
func (s *Server) setupRouter() {
	router := gin.New()

	zapLogger := s.logger.Raw()

	// Recovery first so panics in later middleware are caught too.
	router.Use(ginzap.RecoveryWithZap(zapLogger, true))
	router.Use(middleware.RequestID())
	router.Use(ginzap.Ginzap(zapLogger, time.RFC3339, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.NewHealthHandler(s.logger).Health)

	v1 := router.Group("/api/v1")
	{
		eventHandler := handlers.NewEventHandler(s.logger, s.deps.Events, s.deps.Clock)
		v1.POST("/events", eventHandler.IngestEvent)

		triggerHandler := handlers.NewTriggerHandler(s.logger, s.deps.Triggers)
		triggerRoutes := v1.Group("/triggers")
		{
			triggerRoutes.POST("", triggerHandler.CreateTrigger)
			triggerRoutes.GET("", triggerHandler.ListTriggers)
			triggerRoutes.GET("/:id", triggerHandler.GetTrigger)
			triggerRoutes.PUT("/:id", triggerHandler.UpdateTrigger)
			triggerRoutes.DELETE("/:id", triggerHandler.DeleteTrigger)
		}

		deliveryHandler := handlers.NewDeliveryHandler(s.logger, s.deps.Deliveries)
		v1.GET("/deliveries", deliveryHandler.ListDeliveries)

		deadLetterHandler := handlers.NewDeadLetterHandler(s.logger, s.deps.DeadLetters, s.deps.Replays)
		deadLetters := v1.Group("/dead-letters")
		{
			deadLetters.GET("", deadLetterHandler.ListDeadLetters)
			deadLetters.GET("/:id", deadLetterHandler.GetDeadLetter)
			deadLetters.POST("/:id/replay", deadLetterHandler.ReplayDeadLetter)
			deadLetters.POST("/:id/ignore", deadLetterHandler.IgnoreDeadLetter)
			deadLetters.DELETE("/:id", deadLetterHandler.DeleteDeadLetter)
		}

		connectorHandler := handlers.NewConnectorHandler(s.logger, s.deps.Gateway)
		connectors := v1.Group("/connectors")
		{
			connectors.GET("/:id/status", connectorHandler.GetConnectorStatus)
			connectors.POST("/:id/reset", connectorHandler.ResetConnectorCircuit)
		}
	}

	s.router = router
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Serve starts the HTTP server and blocks until an interrupt, then shuts
// down gracefully.
func (s *Server) Serve() error {
	addr := ":" + s.config.HTTPPort
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting API server",
			zap.String("address", addr),
			zap.String("environment", s.config.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-quit
	s.logger.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Info("server exited")
	return nil
}
