package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/shared"
)

// repair runs one repair pass over the stored table and exits.
func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := shared.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer svc.Close()

	rep, err := svc.Repair.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("repair failed")
		svc.Close()
		os.Exit(1)
	}
	if rep.DatesUnresolved > 0 {
		log.Warn().Int("dates_unresolved", rep.DatesUnresolved).Msg("some rows still have no date")
	}
}
