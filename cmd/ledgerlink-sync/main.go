package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"ledgerlink/internal/config"
	"ledgerlink/internal/ledger"
	"ledgerlink/internal/logger"
	"ledgerlink/internal/openbanking"
	"ledgerlink/internal/reconcile"
	"ledgerlink/internal/session"
	"ledgerlink/internal/state"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Window start in YYYY-MM-DD format (default: stored cursor)")
	endDateStr := flag.String("end-date", "", "Window end in YYYY-MM-DD format (default: today)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview the mapped batch without importing")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	opts := reconcile.Options{DryRun: *dryRun, Lookback: cfg.SyncLookback}
	var err error
	if *startDateStr != "" {
		opts.From, err = time.Parse("2006-01-02", *startDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}
	}
	if *endDateStr != "" {
		opts.To, err = time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	cursors, err := state.Open(cfg.StatePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StatePath).Msg("Failed to open state store")
	}
	defer cursors.Close()

	provider := openbanking.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderToken)
	coordinator := session.NewCoordinator(func() ledger.Client { return ledger.NewHTTPClient() })
	pipeline := reconcile.NewPipeline(provider, coordinator, cursors)

	result, err := pipeline.Sync(ctx, cfg.Tenant(), opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Synced %s..%s: %d fetched, %d imported, %d updated, %d skipped, %d errors\n",
		result.From.Format("2006-01-02"), result.To.Format("2006-01-02"),
		result.Fetched, result.Imported, result.Updated, result.Skipped, len(result.Errors))
	for _, importErr := range result.Errors {
		fmt.Printf("  %s: %s\n", importErr.ExternalID, importErr.Message)
	}
}
