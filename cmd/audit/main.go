package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rmartins/expense-audit/internal/adjudicate"
	"github.com/rmartins/expense-audit/internal/config"
	"github.com/rmartins/expense-audit/internal/gcs"
	"github.com/rmartins/expense-audit/internal/infra/bigquery"
	"github.com/rmartins/expense-audit/internal/logger"
	"github.com/rmartins/expense-audit/internal/notionsync"
	"github.com/rmartins/expense-audit/internal/pipeline"
)

func main() {
	log := logger.New()

	transactions := flag.String("transactions", "", "transactions CSV (local path or gs:// URI, overrides TRANSACTIONS_PATH)")
	emails := flag.String("emails", "", "email corpus (local path or gs:// URI, overrides EMAILS_PATH)")
	output := flag.String("output", "", "directory for report artifacts (overrides OUTPUT_DIR)")
	noLLM := flag.Bool("no-llm", false, "skip LLM adjudication and emit cross-match findings directly")
	dryRunNotion := flag.Bool("dry-run-notion", false, "log Notion changes without applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *transactions != "" {
		cfg.TransactionsPath = *transactions
	}
	if *emails != "" {
		cfg.EmailsPath = *emails
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *noLLM {
		cfg.LLMEnabled = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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

	var storage gcs.StorageService
	if gcs.IsURI(cfg.TransactionsPath) || gcs.IsURI(cfg.EmailsPath) || cfg.GCSBucket != "" {
		storage = gcs.NewService()
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
		syncer = notionsync.NewSyncer(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabase, *dryRunNotion)
	}

	log.Info().
		Str("transactions", cfg.TransactionsPath).
		Str("emails", cfg.EmailsPath).
		Bool("llm_enabled", cfg.LLMEnabled).
		Msg("Starting expense audit")

	res, err := pipeline.New(cfg, model, storage, sink, syncer).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Audit failed")
	}

	fmt.Printf("Audit %s completed: %d findings (%d direct, %d contextual), %d queued for manual review.\n",
		res.RunID, len(res.Findings), res.Summary.DirectCount, res.Summary.ContextualCount, len(res.Review))
	fmt.Printf("Findings: %s\nSummary:  %s\n", res.CSVPath, res.SummaryPath)
}
