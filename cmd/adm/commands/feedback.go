// Package commands contains the subcommands of the adm CLI tool.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"feedbackapp/internal/config"
	"feedbackapp/internal/models"
	"feedbackapp/internal/observability"
	"feedbackapp/internal/services"
	"feedbackapp/internal/store"
	contextutils "feedbackapp/internal/utils"
)

// FeedbackCommands returns the feedback command group: export and metrics
// over the live collection.
func FeedbackCommands(storeClient store.FeedbackStore, logger *observability.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Feedback collection operations",
	}

	cmd.AddCommand(exportCommand(storeClient, logger))
	cmd.AddCommand(metricsCommand(storeClient, logger))
	return cmd
}

// loadSnapshot opens the subscription and waits for the first snapshot.
func loadSnapshot(ctx context.Context, storeClient store.FeedbackStore, logger *observability.Logger) ([]models.Feedback, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cache := services.NewFeedbackCache(storeClient, store.SubscribeOptions{}, logger)
	if err := cache.Start(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(config.FirstSnapshotTimeout)
	for cache.Loading() {
		if time.Now().After(deadline) {
			return nil, contextutils.WrapError(contextutils.ErrTimeout, "timed out waiting for the first snapshot")
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := cache.Err(); err != nil {
		return nil, err
	}
	return cache.All(), nil
}

func exportCommand(storeClient store.FeedbackStore, logger *observability.Logger) *cobra.Command {
	var (
		format string
		output string
		status string
		rating string
		date   string
		search string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the feedback collection to CSV or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			all, err := loadSnapshot(ctx, storeClient, logger)
			if err != nil {
				return err
			}

			spec := models.FilterSpec{
				Search: search,
				Status: status,
				Rating: services.ParseRatingSelector(rating),
				Date:   models.DateRange(date),
			}
			view := services.FilterFeedbacks(all, spec, time.Now())

			exporter := services.NewExportService(logger)
			var data []byte
			var filename string
			switch format {
			case "csv":
				data, filename, err = exporter.ExportCSV(ctx, view)
			case "json":
				data, filename, err = exporter.ExportJSON(ctx, view, spec)
			default:
				return contextutils.ErrorWithContextf("unknown format %q, expected csv or json", format)
			}
			if err != nil {
				return err
			}

			if output != "" {
				filename = output
			}
			if err := os.WriteFile(filename, data, 0o644); err != nil {
				return contextutils.WrapError(err, "failed to write export file")
			}

			fmt.Printf("Exported %d records to %s\n", len(view), filename)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: generated name)")
	cmd.Flags().StringVar(&status, "status", "all", "status filter: all, new, read, responded")
	cmd.Flags().StringVar(&rating, "rating", "all", "rating filter: all or 1..5")
	cmd.Flags().StringVar(&date, "date", "all", "date filter: all, today, last7days, last30days")
	cmd.Flags().StringVar(&search, "search", "", "substring search over name, email, comment")
	return cmd
}

func metricsCommand(storeClient store.FeedbackStore, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print aggregate metrics for the feedback collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := loadSnapshot(cmd.Context(), storeClient, logger)
			if err != nil {
				return err
			}

			m := services.CalculateMetrics(all)
			fmt.Printf("Total feedbacks:    %d\n", m.Total)
			fmt.Printf("Average rating:     %.2f\n", m.AverageRating)
			fmt.Printf("Unique submitters:  %d\n", m.UniqueSubmitters)
			fmt.Printf("Satisfaction rate:  %.1f%%\n", m.SatisfactionRate)

			fmt.Println("\nBy status:")
			for _, s := range []models.FeedbackStatus{models.StatusNew, models.StatusRead, models.StatusResponded} {
				fmt.Printf("  %-10s %d\n", s, services.StatusHistogram(all)[s])
			}

			fmt.Println("\nBy rating:")
			ratings := services.RatingHistogram(all)
			for r := 1; r <= 5; r++ {
				fmt.Printf("  %d stars: %d\n", r, ratings[r])
			}
			return nil
		},
	}
}
