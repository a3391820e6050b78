package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/shared"
)

// ingestor runs one batch over the whole roster (or -listing) and exits.
// Failed listings are reported but do not fail the process.
func main() {
	listing := flag.String("listing", "", "only fetch this accommodation")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ScrapeTimeout)
		defer cancel()
	}

	svc, err := shared.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer svc.Close()

	log.Info().Str("listing", *listing).Str("cloud", cfg.CloudBackend).Msg("ingestor starting")
	rep, err := svc.Ingest.Run(ctx, *listing)
	if err != nil {
		log.Error().Err(err).Str("run_id", rep.RunID).Msg("ingestion failed")
		svc.Close()
		os.Exit(1)
	}
	log.Info().
		Str("run_id", rep.RunID).
		Int("targets", rep.Targets).
		Int("failed", rep.Failed).
		Int("added", rep.Added).
		Str("source", string(svc.Store.Source())).
		Msg("ingestion completed")
}
