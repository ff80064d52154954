package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	httpadapter "resume-optimizer/internal/adapter/http"
	repo "resume-optimizer/internal/adapter/repository"
	"resume-optimizer/internal/config"
	"resume-optimizer/internal/infrastructure/migration"
	"resume-optimizer/internal/usecase"
	"resume-optimizer/pkg/ai"
	infra "resume-optimizer/pkg/infrastructure"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// infra setup; job persistence is best-effort
	var jobsRepo *repo.JobsRepo
	if cfg.JobsDatabaseURL != "" {
		pool, err := infra.NewJobsPool(ctx, cfg.JobsDatabaseURL)
		if err != nil {
			logger.Warn("jobs DB not available", zap.Error(err))
			jobsRepo = repo.NewJobsRepo(nil)
		} else {
			if err := migration.RunMigrations(ctx, pool, logger); err != nil {
				logger.Warn("migrations failed", zap.Error(err))
			}
			jobsRepo = repo.NewJobsRepo(pool)
		}
	} else {
		jobsRepo = repo.NewJobsRepo(nil)
	}

	renderers := usecase.Renderers{
		Truncate: infra.NewChromedpRenderer(cfg.ChromePath, infra.PagePolicyTruncate, logger),
		Fail:     infra.NewChromedpRenderer(cfg.ChromePath, infra.PagePolicyFail, logger),
		Default:  cfg.PagePolicy,
	}

	aiClient := ai.NewClient(cfg.AIServiceURL, logger)
	pipeline := usecase.NewPipeline(aiClient, renderers, jobsRepo, logger)

	app := fiber.New(fiber.Config{BodyLimit: 16 * 1024 * 1024})

	h := httpadapter.NewHandler(pipeline, logger)
	app.Post("/optimize", h.Optimize)
	app.Get("/healthz", h.Healthz)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("port", cfg.Port))

	<-ctx.Done()
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
