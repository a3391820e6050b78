package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "review_monitor/internal/adapters/http_server"
	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/app"
	"review_monitor/internal/shared"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	svc, err := shared.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer svc.Close()

	sched, err := app.NewScheduler(cfg.ScrapeCron, svc.Ingest, cfg.ScrapeTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	handlers := &server.Handlers{
		Q:          svc.Queries,
		C:          svc.Commands,
		Ingest:     svc.Ingest,
		Repair:     svc.Repair,
		Roster:     svc.Roster,
		JobTimeout: cfg.ScrapeTimeout,
	}
	srv.MountHandlers(handlers)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("cloud", cfg.CloudBackend).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sched != nil {
		sched.Start()
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		if sched != nil {
			sched.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)

		// Ingestion started over HTTP must finish its save before the
		// stores are closed.
		drain := cfg.ScrapeTimeout
		if drain <= 0 {
			drain = time.Hour
		}
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drain)
		defer cancelDrain()
		if werr := handlers.Wait(drainCtx); werr != nil {
			log.Warn().Err(werr).Msg("background ingestion still running at exit")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("http server failed")
		svc.Close()
		os.Exit(1)
	}
}
