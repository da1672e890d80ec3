package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmartins/expense-audit/internal/adjudicate"
	"github.com/rmartins/expense-audit/internal/config"
	"github.com/rmartins/expense-audit/internal/gcs"
	"github.com/rmartins/expense-audit/internal/infra/bigquery"
	"github.com/rmartins/expense-audit/internal/jobs"
	"github.com/rmartins/expense-audit/internal/jobs/inmemory"
	"github.com/rmartins/expense-audit/internal/logger"
	"github.com/rmartins/expense-audit/internal/notionsync"
	"github.com/rmartins/expense-audit/internal/pipeline"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// In production this would be replaced with Cloud Tasks or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	log.Info().Msg("Starting audit worker service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var model adjudicate.ModelClient
	if cfg.LLMEnabled {
		client, err := adjudicate.NewGeminiClient(ctx, cfg.ModelName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		model = client
	}

	var sink pipeline.RunSink
	if cfg.BigQueryProject != "" {
		store, err := bigquery.NewStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer store.Close()
		sink = store
	}

	var syncer pipeline.FindingsSyncer
	if cfg.NotionToken != "" {
		syncer = notionsync.NewSyncer(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabase, false)
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		auditJob, ok := job.(*jobs.AuditJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", auditJob.JobID).
			Str("transactions", auditJob.TransactionsPath).
			Str("emails", auditJob.EmailsPath).
			Msg("Processing audit job")

		// Each job may target its own input files.
		jobCfg := *cfg
		if auditJob.TransactionsPath != "" {
			jobCfg.TransactionsPath = auditJob.TransactionsPath
		}
		if auditJob.EmailsPath != "" {
			jobCfg.EmailsPath = auditJob.EmailsPath
		}

		var storage gcs.StorageService
		if gcs.IsURI(jobCfg.TransactionsPath) || gcs.IsURI(jobCfg.EmailsPath) || jobCfg.GCSBucket != "" {
			storage = gcs.NewService()
		}

		res, err := pipeline.New(&jobCfg, model, storage, sink, syncer).Run(ctx)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", auditJob.JobID).
				Msg("Audit run failed")
			return err
		}
		auditJob.AuditRunID = res.AuditRunID

		log.Info().
			Str("job_id", auditJob.JobID).
			Str("run_id", res.RunID).
			Int("findings", len(res.Findings)).
			Msg("Audit run completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Seed one job for the configured inputs so a bare worker run audits
	// the default dataset.
	seed := &jobs.AuditJob{
		TransactionsPath: cfg.TransactionsPath,
		EmailsPath:       cfg.EmailsPath,
	}
	if err := jobQueue.PublishAudit(ctx, seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to enqueue initial audit job")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
