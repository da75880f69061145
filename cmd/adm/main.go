// Package main provides the main entry point for the feedback application
// admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"feedbackapp/cmd/adm/commands"
	"feedbackapp/internal/config"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/store"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level for admin tool
	cfg.Server.LogLevel = "error"

	// Disable all OpenTelemetry features for the admin CLI to avoid
	// connection errors against a missing collector.
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "feedback-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if tp != nil {
			if sd, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
				if err := sd.Shutdown(context.TODO()); err != nil {
					logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
				}
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	// Connect to the document store
	storeClient, err := store.NewClient(ctx, &cfg.Store, logger)
	if err != nil {
		logger.Error(ctx, "Failed to connect to document store", err, map[string]interface{}{"project_id": cfg.Store.ProjectID})
		os.Exit(1)
	}
	defer func() {
		if err := storeClient.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close store connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	sessionService := services.NewSessionService(&cfg.Identity, storeClient, logger)

	// Create the root command
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Feedback Application Administration Tool",
		Long: `Feedback Application Administration Tool

A CLI tool for administering the feedback application.
Provides commands for exporting feedback, inspecting metrics, and managing users.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.FeedbackCommands(storeClient, logger))
	rootCmd.AddCommand(commands.UserCommands(sessionService, storeClient, logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
