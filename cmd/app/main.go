// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"jobsieve/internal/config"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	aiAdapters "jobsieve/internal/infra/adapters/ai"
	"jobsieve/internal/infra/adapters/mail"
	"jobsieve/internal/infra/adapters/scrape"
	tele "jobsieve/internal/infra/adapters/telegram"
	pg "jobsieve/internal/infra/db/postgres"
	"jobsieve/internal/infra/events"
	"jobsieve/internal/infra/logging"
	"jobsieve/internal/infra/metrics"
	red "jobsieve/internal/infra/redis"
	"jobsieve/internal/infra/sched"
	"jobsieve/internal/infra/web"
	"jobsieve/internal/infra/worker"
	"jobsieve/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, fake embeddings allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema")
	}
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	queue := red.NewTaskQueue(redisClient, logger)
	if n, err := queue.RequeueOrphans(ctx); err != nil {
		logger.Fatal().Err(err).Msg("requeue orphans")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("requeued orphaned tasks")
	}
	go queue.RunMaintenance(ctx, 5*time.Second)

	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- AI adapters ----
	var embedder adapter.EmbeddingAdapter
	var llm adapter.LLMAdapter
	switch {
	case cfg.AI.GeminiKey != "":
		ga, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.EmbeddingModel, cfg.AI.LLMModel, cfg.AI.Dimensions)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		embedder = ga
		if cfg.AI.LLMModel != "" {
			llm = ga
		}
		logger.Info().Str("model", cfg.AI.EmbeddingModel).Msg("embeddings: Gemini")
	case cfg.AI.OpenAIKey != "":
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.EmbeddingModel, cfg.AI.LLMModel, cfg.AI.Dimensions)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		embedder = oa
		if cfg.AI.LLMModel != "" {
			llm = oa
		}
		logger.Info().Str("model", cfg.AI.EmbeddingModel).Msg("embeddings: OpenAI")
	case cfg.Runtime.Dev:
		embedder = aiAdapters.NewNoopEmbedding(cfg.AI.Dimensions)
		logger.Warn().Msg("embeddings: deterministic noop vectors (dev only)")
	default:
		logger.Fatal().Msg("no embedding provider configured: set ai.gemini_key or ai.openai_key")
	}
	embedder = aiAdapters.NewLimitedEmbedding(embedder, cfg.AI.ConcurrentLimit, cfg.AI.EmbedTimeout)

	// ---- Repositories ----
	txm := pg.NewTxManager(pool)
	postingRepo := pg.NewPostingRepo(pool)
	messageRepo := pg.NewSourceMessageRepo(pool)
	keywordRepo := pg.NewKeywordRepoCacheDecorator(
		pg.NewKeywordRepo(pool, txm), redisClient, embedder.ModelTag(), cfg.Redis.CacheTTL)

	// ---- Notifications ----
	hub := events.NewHub(logger)
	notifier := adapter.Notifier(hub)
	if cfg.Notify.TelegramToken != "" {
		bot, err := tele.NewNotifyBot(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
		notifier = events.Multi{hub, bot}
	}

	// ---- Page fetching ----
	policy := scrape.NewHostPolicy(cfg.Enrich.CrawlDenied, cfg.Enrich.CrawlReasons)
	fetcher := scrape.NewPageFetcher(policy, rateLimiter, cfg.Enrich.FetchTimeout, cfg.Enrich.HostRateLimit, logger)

	// ---- Mail source ----
	var mailSource adapter.MailSource = mail.NoopSource{}
	if cfg.Mail.FixturePath != "" {
		mailSource = mail.NewStaticSource(cfg.Mail.FixturePath)
	} else {
		logger.Warn().Msg("no mail source configured; scans will find nothing")
	}

	// ---- Use cases ----
	filterUC := usecase.NewFilterUseCase(postingRepo, keywordRepo, embedder, notifier, cfg.Filter.Threshold, logger)
	extractUC := usecase.NewExtractUseCase(messageRepo, postingRepo, queue, cfg.Extract, logger)
	enrichUC := usecase.NewEnrichUseCase(postingRepo, fetcher, llm, embedder, filterUC, cfg.Enrich, logger)
	scanUC := usecase.NewScanUseCase(mailSource, messageRepo, queue, locker, notifier, cfg.Scan, logger)
	blacklistUC := usecase.NewBlacklistUseCase(keywordRepo, queue, logger)
	postingUC := usecase.NewPostingUseCase(postingRepo)

	// ---- Task dispatcher ----
	dispatcher := worker.NewDispatcher(queue, logger)
	dispatcher.Register(model.TaskKindExtract, cfg.Pipeline.Extract,
		func(ctx context.Context, t *model.Task) error { return extractUC.Run(ctx, t.MessageID) }, nil)
	dispatcher.Register(model.TaskKindEnrich, cfg.Pipeline.Enrich,
		func(ctx context.Context, t *model.Task) error { return enrichUC.Run(ctx, t.PostingID) },
		func(ctx context.Context, t *model.Task) {
			if err := enrichUC.MarkFailed(ctx, t.PostingID); err != nil {
				logger.Error().Err(err).Str("posting_id", t.PostingID).Msg("posting left in processing after retries exhausted")
			}
		})
	dispatcher.Register(model.TaskKindEmbedKeyword, cfg.Pipeline.EmbedKeyword,
		func(ctx context.Context, t *model.Task) error { return filterUC.ComputeKeywordEmbedding(ctx, t.KeywordID) }, nil)
	dispatcher.Start(ctx)

	// ---- Background loops ----
	scheduler := sched.NewScheduler(scanUC, cfg.Scan.Cron, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	backfill := sched.NewBackfillWorker(cfg.Scan.BackfillInterval, postingRepo, keywordRepo, queue, embedder, logger)
	go func() { _ = backfill.Run(ctx) }()

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Web.AdminSecret, cfg.Web.AdminPass, cfg.Web.SessionTTL, !cfg.Runtime.Dev)
	server := web.NewServer(postingUC, scanUC, blacklistUC, queue, hub, auth, cfg.Web.Port, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("admin api stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin api shutdown")
	}
	scheduler.Stop()
	dispatcher.Stop()
	logger.Info().Msg("bye")
}
