package pipeline

import (
	"context"

	"github.com/rmartins/expense-audit/internal/domain"
)

// RunSink persists audit runs and their findings. The BigQuery store
// implements it; the pipeline tolerates its absence.
type RunSink interface {
	StartAuditRun(ctx context.Context, txCount, emailCount int) (string, error)
	InsertFindings(ctx context.Context, auditRunID string, findings []domain.Finding) error
	MarkAuditRunSucceeded(ctx context.Context, auditRunID string, findingCount int) error
	MarkAuditRunFailed(ctx context.Context, auditRunID string, runErr error)
}

// FindingsSyncer mirrors findings into an external review surface (Notion).
type FindingsSyncer interface {
	SyncFindings(ctx context.Context, auditRunID string, findings []domain.Finding) error
}
