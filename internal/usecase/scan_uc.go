// File: internal/usecase/scan_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobsieve/internal/config"
	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/metrics"
	"jobsieve/internal/infra/redis"
)

const scanLockKey = "lock:mail_scan"

// ScanUseCase syncs the mailbox into source messages and enqueues
// extraction tasks. A Redis lock keeps concurrent triggers (cron plus a
// manual API call) down to one running scan.
type ScanUseCase struct {
	mail     adapter.MailSource
	messages repository.SourceMessageRepository
	queue    adapter.TaskQueue
	locker   redis.Locker
	notifier adapter.Notifier
	cfg      config.ScanConfig
	logger   zerolog.Logger
}

func NewScanUseCase(
	mail adapter.MailSource,
	messages repository.SourceMessageRepository,
	queue adapter.TaskQueue,
	locker redis.Locker,
	notifier adapter.Notifier,
	cfg config.ScanConfig,
	logger *zerolog.Logger,
) *ScanUseCase {
	return &ScanUseCase{
		mail:     mail,
		messages: messages,
		queue:    queue,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "scan_uc").Logger(),
	}
}

// Run performs one scan cycle and reports counts instead of aborting on
// per-message failures. Returns domain.ErrScanInProgress when another scan
// holds the lock.
func (uc *ScanUseCase) Run(ctx context.Context) (model.ScanSummary, error) {
	var summary model.ScanSummary

	token, err := uc.locker.TryLock(ctx, scanLockKey, 10*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrScanInProgress) {
			metrics.IncScan("locked")
			return summary, err
		}
		metrics.IncScan("error")
		return summary, fmt.Errorf("acquire scan lock: %w", err)
	}
	defer func() {
		if err := uc.locker.Unlock(context.WithoutCancel(ctx), scanLockKey, token); err != nil {
			uc.logger.Warn().Err(err).Msg("scan lock release failed")
		}
	}()

	since := time.Now().Add(-uc.cfg.Lookback)
	msgs, err := uc.mail.FetchJobRelated(ctx, since)
	if err != nil {
		metrics.IncScan("error")
		return summary, fmt.Errorf("fetch mail: %w", err)
	}

	for _, m := range msgs {
		summary.Processed++
		id, _, err := uc.messages.Save(ctx, nil, m)
		if err != nil {
			summary.Failed++
			uc.logger.Warn().Err(err).Str("provider_id", m.ProviderID).Msg("message save failed")
			continue
		}
		m.ID = id
	}

	// Extraction runs from the unscanned set, not the fetch result, so
	// messages saved by a previously crashed scan are picked up too.
	pending, err := uc.messages.ListUnscanned(ctx, nil, uc.cfg.BatchSize)
	if err != nil {
		metrics.IncScan("error")
		return summary, fmt.Errorf("list unscanned: %w", err)
	}
	for _, m := range pending {
		if err := uc.queue.Enqueue(ctx, model.NewExtractTask(m.ID)); err != nil {
			summary.Failed++
			uc.logger.Warn().Err(err).Str("message_id", m.ID).Msg("extract enqueue failed")
			continue
		}
		summary.Enqueued++
	}
	summary.Skipped = summary.Processed - summary.Failed - len(pending)
	if summary.Skipped < 0 {
		summary.Skipped = 0
	}

	metrics.IncScan("ok")
	uc.logger.Info().
		Int("processed", summary.Processed).
		Int("enqueued", summary.Enqueued).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("scan finished")
	if uc.notifier != nil {
		uc.notifier.ScanFinished(ctx, summary)
	}
	return summary, nil
}
