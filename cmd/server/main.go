// Package main provides the main entry point for the feedback application
// backend server. It sets up the document store connection, the live
// feedback cache, middleware, and API routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"feedbackapp/internal/config"
	"feedbackapp/internal/handlers"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/services/mailer"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// Application encapsulates the running server and its dependencies.
type Application struct {
	cfg    *config.Config
	store  *store.Client
	cache  *services.FeedbackCache
	router *gin.Engine
	server *http.Server
	logger *observability.Logger
}

// NewApplication wires the store, cache, services, and router.
func NewApplication(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Application, error) {
	storeClient, err := store.NewClient(ctx, &cfg.Store, logger)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to connect to document store")
	}

	cache := services.NewFeedbackCache(storeClient, store.SubscribeOptions{}, logger)

	var notifier mailer.Mailer
	if cfg.Email.Enabled && cfg.Email.ResponseNotification {
		notifier = mailer.NewSMTPMailer(&cfg.Email, logger)
	}

	feedbackService := services.NewFeedbackService(storeClient, cache, notifier, logger)
	exportService := services.NewExportService(logger)
	sessionService := services.NewSessionService(&cfg.Identity, storeClient, logger)

	verifier, err := services.NewTokenVerifier(ctx, &cfg.Store, logger)
	if err != nil {
		// Bearer auth degrades to session-only; browser clients are unaffected.
		logger.Warn(ctx, "Token verifier unavailable, bearer auth disabled", map[string]interface{}{
			"error": err.Error(),
		})
		verifier = nil
	}

	router := handlers.NewRouter(cfg, cache, feedbackService, exportService, sessionService, verifier, logger)

	return &Application{
		cfg:    cfg,
		store:  storeClient,
		cache:  cache,
		router: router,
		logger: logger,
	}, nil
}

// Run starts the live subscription and the HTTP server, blocking until the
// server stops.
func (a *Application) Run(ctx context.Context) error {
	if err := a.cache.Start(ctx); err != nil {
		return contextutils.WrapError(err, "failed to start feedback cache")
	}

	a.server = &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.DefaultHTTPTimeout,
		WriteTimeout:      config.DefaultHTTPTimeout,
	}

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes the store connection.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return contextutils.WrapError(err, "failed to shut down HTTP server")
		}
	}
	return a.store.Close()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "feedback-backend")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if tp != nil {
			if sd, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
				if err := sd.Shutdown(shutdownCtx); err != nil {
					logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
				}
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	logger.Info(ctx, "Starting feedback backend service", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
	})

	app, err := NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		os.Exit(1)
	}

	// Start application in a goroutine
	appErr := make(chan error, 1)
	go func() {
		if err := app.Run(ctx); err != nil {
			appErr <- err
		}
	}()

	// Wait for shutdown signal or application error
	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err, nil)
		os.Exit(1)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
}
