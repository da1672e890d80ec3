// Package pipeline orchestrates one audit run end to end: load inputs, run
// the rule and smurfing detectors, correlate emails with transactions,
// adjudicate suspicious pairs, consolidate and emit the report artifacts.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/rmartins/expense-audit/internal/adjudicate"
	"github.com/rmartins/expense-audit/internal/config"
	"github.com/rmartins/expense-audit/internal/correlate"
	"github.com/rmartins/expense-audit/internal/domain"
	"github.com/rmartins/expense-audit/internal/emailcorpus"
	"github.com/rmartins/expense-audit/internal/gcs"
	"github.com/rmartins/expense-audit/internal/logger"
	"github.com/rmartins/expense-audit/internal/report"
	"github.com/rmartins/expense-audit/internal/rules"
	"github.com/rmartins/expense-audit/internal/txstore"
)

// Pipeline wires the audit stages together. Optional collaborators may be
// nil: model (LLM adjudication), storage (gs:// inputs and artifact upload),
// sink (BigQuery) and syncer (Notion).
type Pipeline struct {
	cfg     *config.Config
	model   adjudicate.ModelClient
	storage gcs.StorageService
	sink    RunSink
	syncer  FindingsSyncer
}

// Result summarizes one completed audit run.
type Result struct {
	RunID      string
	AuditRunID string // empty unless a RunSink is configured

	TransactionCount int
	EmailsParsed     int
	EmailsDropped    int

	DirectViolations  int
	SmurfingCases     int
	SuspiciousEmails  int
	CorrelatedPairs   int
	AdjudicationStats adjudicate.BatchStats

	Findings []domain.Finding
	Summary  report.Summary
	Review   []domain.Transaction

	CSVPath     string
	SummaryPath string
}

// New creates a Pipeline. cfg is required; the remaining collaborators are
// optional and may be nil.
func New(cfg *config.Config, model adjudicate.ModelClient, storage gcs.StorageService, sink RunSink, syncer FindingsSyncer) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		model:   model,
		storage: storage,
		sink:    sink,
		syncer:  syncer,
	}
}

// Run executes one full audit. Input loading errors are fatal; failures in
// the optional sinks are logged and do not fail the run once the artifacts
// are written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx, log)

	res := &Result{RunID: runID}

	// 1. Load the transaction dataset.
	txs, err := p.loadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: loading transactions: %w", err)
	}
	res.TransactionCount = len(txs)
	log.Info().Int("transactions", len(txs)).Msg("Loaded transaction dataset")

	// 2. Parse the email corpus.
	emails, stats, err := p.loadEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: parsing emails: %w", err)
	}
	res.EmailsParsed = stats.Parsed
	res.EmailsDropped = stats.Dropped
	log.Info().
		Int("parsed", stats.Parsed).
		Int("dropped", stats.Dropped).
		Msg("Parsed email corpus")

	// 3. Register the run in the sink, if one is configured.
	if p.sink != nil {
		auditRunID, err := p.sink.StartAuditRun(ctx, len(txs), len(emails))
		if err != nil {
			return nil, fmt.Errorf("Run: starting audit run: %w", err)
		}
		res.AuditRunID = auditRunID
	}

	findings, err := p.detect(ctx, txs, emails, res)
	if err != nil {
		if p.sink != nil && res.AuditRunID != "" {
			p.sink.MarkAuditRunFailed(ctx, res.AuditRunID, err)
		}
		return nil, err
	}
	res.Findings = findings

	// 9. Aggregate and build the manual-review queue.
	res.Summary = report.Summarize(findings, 10)
	res.Review = report.ManualReview(txs, findings)

	// 10. Write the report artifacts.
	now := time.Now()
	csvPath, err := report.WriteFindingsCSV(p.cfg.OutputDir, findings, now)
	if err != nil {
		if p.sink != nil && res.AuditRunID != "" {
			p.sink.MarkAuditRunFailed(ctx, res.AuditRunID, err)
		}
		return nil, fmt.Errorf("Run: writing findings CSV: %w", err)
	}
	res.CSVPath = csvPath

	summaryPath, err := report.WriteSummaryTXT(p.cfg.OutputDir, res.Summary, res.Review, now)
	if err != nil {
		if p.sink != nil && res.AuditRunID != "" {
			p.sink.MarkAuditRunFailed(ctx, res.AuditRunID, err)
		}
		return nil, fmt.Errorf("Run: writing summary: %w", err)
	}
	res.SummaryPath = summaryPath

	log.Info().
		Int("findings", len(findings)).
		Str("csv", csvPath).
		Str("summary", summaryPath).
		Msg("Report artifacts written")

	// 11. Best-effort delivery to the optional sinks.
	p.deliver(ctx, res)

	return res, nil
}

// detect runs steps 4 through 8: the two rule detectors, the correlation
// stage, adjudication and consolidation.
func (p *Pipeline) detect(ctx context.Context, txs []domain.Transaction, emails []domain.Email, res *Result) ([]domain.Finding, error) {
	log := logger.FromContext(ctx)

	// 4. Direct policy violations.
	violations := rules.EvaluateAll(txs)
	res.DirectViolations = len(violations)

	// 5. Smurfing detection, merged so each transaction keeps one record.
	cases := rules.DetectSmurfing(txs, p.cfg.SmurfingWindowDays, p.cfg.SmurfingLimit)
	res.SmurfingCases = len(cases)
	violations = rules.MergeSmurfing(violations, cases, txstore.ByID(txs))
	log.Info().
		Int("violations", len(violations)).
		Int("smurfing_cases", len(cases)).
		Msg("Rule detectors finished")

	// 6. Score the email corpus for fraud signals.
	suspicious := correlate.ScoreEmails(emails)
	res.SuspiciousEmails = len(suspicious)

	// 7. Cross-match suspicious emails against transactions.
	pairs := correlate.CrossMatchAll(suspicious, txs, p.cfg.CorrelationWindowDays, p.cfg.MinCrossMatchScore)
	res.CorrelatedPairs = len(pairs)
	log.Info().
		Int("suspicious_emails", len(suspicious)).
		Int("pairs", len(pairs)).
		Msg("Correlation finished")

	// 8. Adjudicate the correlated pairs.
	var contextual []domain.ContextualFinding
	if p.model != nil {
		adj := adjudicate.New(p.model, p.cfg.MinConfidence, p.cfg.MaxLLMCalls, p.cfg.LLMWorkers)
		contextual, res.AdjudicationStats = adj.AdjudicateAll(ctx, pairs)
		if res.AdjudicationStats.Aborted {
			log.Warn().Msg("Adjudication batch aborted early; proceeding with partial results")
		}
	} else {
		contextual = adjudicate.WithoutModel(pairs)
		log.Info().Msg("LLM adjudication disabled; emitting cross-match findings directly")
	}

	return report.Consolidate(violations, contextual, p.cfg.Dedup), nil
}

// deliver pushes the results to BigQuery, GCS and Notion where configured.
// Failures are logged, not returned: the artifacts on disk are the source of
// truth.
func (p *Pipeline) deliver(ctx context.Context, res *Result) {
	log := logger.FromContext(ctx)

	if p.sink != nil && res.AuditRunID != "" {
		if err := p.sink.InsertFindings(ctx, res.AuditRunID, res.Findings); err != nil {
			log.Error().Err(err).Msg("Failed to insert findings into BigQuery")
		}
		if err := p.sink.MarkAuditRunSucceeded(ctx, res.AuditRunID, len(res.Findings)); err != nil {
			log.Error().Err(err).Msg("Failed to mark audit run succeeded")
		}
	}

	if p.storage != nil && p.cfg.GCSBucket != "" {
		for _, artifact := range []string{res.CSVPath, res.SummaryPath} {
			object := "reports/" + path.Base(artifact)
			if err := p.storage.UploadFile(ctx, p.cfg.GCSBucket, object, artifact); err != nil {
				log.Error().
					Err(err).
					Str("artifact", artifact).
					Msg("Failed to upload report artifact")
				continue
			}
			log.Info().
				Str("object", fmt.Sprintf("gs://%s/%s", p.cfg.GCSBucket, object)).
				Msg("Uploaded report artifact")
		}
	}

	if p.syncer != nil {
		if err := p.syncer.SyncFindings(ctx, res.AuditRunID, res.Findings); err != nil {
			log.Error().Err(err).Msg("Failed to sync findings to Notion")
		}
	}
}

// loadTransactions reads the dataset from the local filesystem or GCS,
// depending on the configured path.
func (p *Pipeline) loadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if gcs.IsURI(p.cfg.TransactionsPath) {
		if p.storage == nil {
			return nil, fmt.Errorf("loadTransactions: %s requires a storage service", p.cfg.TransactionsPath)
		}
		data, err := p.storage.FetchURI(ctx, p.cfg.TransactionsPath)
		if err != nil {
			return nil, err
		}
		return txstore.Load(bytes.NewReader(data))
	}
	return txstore.LoadFile(p.cfg.TransactionsPath)
}

// loadEmails reads the corpus from the local filesystem or GCS.
func (p *Pipeline) loadEmails(ctx context.Context) ([]domain.Email, emailcorpus.ParseStats, error) {
	if gcs.IsURI(p.cfg.EmailsPath) {
		if p.storage == nil {
			return nil, emailcorpus.ParseStats{}, fmt.Errorf("loadEmails: %s requires a storage service", p.cfg.EmailsPath)
		}
		data, err := p.storage.FetchURI(ctx, p.cfg.EmailsPath)
		if err != nil {
			return nil, emailcorpus.ParseStats{}, err
		}
		emails, stats := emailcorpus.Parse(string(data))
		return emails, stats, nil
	}
	return emailcorpus.ParseFile(p.cfg.EmailsPath)
}
