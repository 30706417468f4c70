// Package sched runs the background loops that keep the pipeline moving
// without operator intervention: the periodic mailbox scan and the embedding
// backfill sweep.
package sched

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain"
	"jobsieve/internal/usecase"
)

// Scheduler wraps robfig/cron and triggers mailbox scans on a cron spec.
type Scheduler struct {
	cron   *cron.Cron
	scanUC *usecase.ScanUseCase
	spec   string
	log    *zerolog.Logger
}

func NewScheduler(scanUC *usecase.ScanUseCase, spec string, logger *zerolog.Logger) *Scheduler {
	schedLog := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		scanUC: scanUC,
		spec:   spec,
		log:    &schedLog,
	}
}

// Start registers the scan job and starts the cron loop. One scan runs
// immediately so a fresh deployment does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runScan(ctx)
	})
	if err != nil {
		return fmt.Errorf("register scan job %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("scan scheduler started")

	go s.runScan(ctx)
	return nil
}

// Stop halts the cron loop and waits for a running scan job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scan scheduler stopped")
}

func (s *Scheduler) runScan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	summary, err := s.scanUC.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrScanInProgress):
		// Another instance (or a manual trigger) holds the lock.
		s.log.Debug().Msg("scan skipped, lock held")
	case err != nil:
		s.log.Error().Err(err).Msg("scheduled scan failed")
	default:
		s.log.Info().
			Int("processed", summary.Processed).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Msg("scheduled scan finished")
	}
}
