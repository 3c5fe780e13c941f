package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jobpilot/internal/config"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
	aiAdapters "jobpilot/internal/infra/adapters/ai"
	"jobpilot/internal/infra/adapters/form"
	pg "jobpilot/internal/infra/db/postgres"
	"jobpilot/internal/infra/db/sqlite"
	httpapi "jobpilot/internal/infra/http"
	"jobpilot/internal/infra/logging"
	"jobpilot/internal/infra/metrics"
	red "jobpilot/internal/infra/redis"
	"jobpilot/internal/infra/report"
	"jobpilot/internal/infra/sched"
	"jobpilot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Storage backend ----
	var (
		jobs     repository.JobRepository
		answers  repository.AnswerSetRepository
		profiles repository.ProfileRepository
	)
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Storage.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connect")
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		tm := pg.NewTxManager(pool)
		jobs = pg.NewJobRepo(pool)
		answers = pg.NewAnswerSetRepo(pool)
		profiles = pg.NewProfileRepo(pool, tm)
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("sqlite migrate")
		}
		jobs = sqlite.NewJobRepo(store)
		answers = sqlite.NewAnswerSetRepo(store)
		profiles = sqlite.NewProfileRepo(store)
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("storage ready")

	// ---- Batch lock (optional) ----
	var locker usecase.BatchLocker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	}

	// ---- AI provider ----
	var provider adapter.AIEnrichmentAdapter
	switch cfg.AI.Provider {
	case "openai":
		provider, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model)
	case "gemini":
		provider, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
	default:
		provider = aiAdapters.NewNoopAIAdapter()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("ai provider")
	}
	logger.Info().Str("provider", cfg.AI.Provider).Str("model", provider.ModelName()).Msg("ai ready")

	// The form driver replays the field snapshot captured at discovery.
	driver := form.NewNoopDriver(func(jobID string) []model.FieldSpec {
		j, err := jobs.FindByID(ctx, nil, jobID)
		if err != nil {
			return nil
		}
		return j.Questions
	})

	reporter := report.New(logger)
	ingestUC := usecase.NewIngestUseCase(jobs, logger)
	enrichUC := usecase.NewEnrichmentUseCase(jobs, answers, profiles, provider, reporter, locker, logger)
	enrichUC.SetLockTTL(cfg.Batch.LockTTL)
	applyUC := usecase.NewApplyUseCase(jobs, answers, profiles, driver, reporter, cfg.Batch.ReviewThreshold, logger)
	profileUC := usecase.NewProfileUseCase(profiles, logger)

	if cfg.Batch.SweepInterval > 0 {
		worker := sched.NewSweepWorker(cfg.Batch.SweepInterval, usecase.BatchParams{
			EnrichJobs:      true,
			GenerateAnswers: true,
			Limit:           cfg.Batch.Limit,
			MaxParallel:     cfg.Batch.MaxParallel,
		}, enrichUC, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	srv := httpapi.NewServer(cfg, ingestUC, enrichUC, applyUC, profileUC, jobs, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")
	srv.GracefulShutdown()
}
