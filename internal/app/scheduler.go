package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"review_monitor/internal/domain"
)

// Scheduler runs full ingestion batches on a cron expression.
type Scheduler struct {
	cron    *cron.Cron
	ingest  *IngestionService
	timeout time.Duration
}

// NewScheduler returns nil when expr is empty.
func NewScheduler(expr string, ingest *IngestionService, timeout time.Duration) (*Scheduler, error) {
	if expr == "" {
		return nil, nil
	}
	s := &Scheduler{cron: cron.New(), ingest: ingest, timeout: timeout}
	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return nil, fmt.Errorf("%w: scrape cron %q: %v", domain.ErrInvalidInput, expr, err)
	}
	log.Info().Str("cron", expr).Msg("ingestion scheduled")
	return s, nil
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rep, err := s.ingest.Run(ctx, "")
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		log.Info().Msg("scheduled ingestion skipped: run in progress")
	case err != nil:
		log.Error().Err(err).Str("run_id", rep.RunID).Msg("scheduled ingestion failed")
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running batch to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
