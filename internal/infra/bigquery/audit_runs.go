package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rmartins/expense-audit/internal/logger"
)

const (
	auditRunsTable = "audit_runs"
	findingsTable  = "findings"
)

// Store wraps a BigQuery client scoped to one project and dataset. It holds
// a shared client so pipeline steps do not reconnect per operation.
type Store struct {
	client  *bigquery.Client
	dataset string
}

// NewStore creates a Store for the given project and dataset.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return &Store{client: client, dataset: datasetID}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// StartAuditRun inserts a new audit_runs row with status=RUNNING and returns
// the generated audit_run_id.
func (s *Store) StartAuditRun(ctx context.Context, txCount, emailCount int) (string, error) {
	auditRunID := uuid.NewString()

	q := s.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			audit_run_id,
			started_ts,
			transaction_count,
			email_count,
			status
		)
		VALUES (
			@audit_run_id,
			@started_ts,
			@transaction_count,
			@email_count,
			@status
		)
	`, s.dataset, auditRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "audit_run_id", Value: auditRunID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "transaction_count", Value: txCount},
		{Name: "email_count", Value: emailCount},
		{Name: "status", Value: "RUNNING"},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("StartAuditRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("StartAuditRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("StartAuditRun: job error: %w", err)
	}

	return auditRunID, nil
}

// MarkAuditRunSucceeded sets status=SUCCESS, finished_ts and the final
// finding count, clearing error_message.
func (s *Store) MarkAuditRunSucceeded(ctx context.Context, auditRunID string, findingCount int) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    finding_count = @finding_count,
		    error_message = ""
		WHERE audit_run_id = @audit_run_id
	`, s.dataset, auditRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "finding_count", Value: findingCount},
		{Name: "audit_run_id", Value: auditRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkAuditRunSucceeded: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkAuditRunSucceeded: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkAuditRunSucceeded: job error: %w", err)
	}

	return nil
}

// MarkAuditRunFailed sets status=FAILED, finished_ts and error_message. It
// logs instead of returning an error because it runs on failure paths where
// the original error must survive.
func (s *Store) MarkAuditRunFailed(ctx context.Context, auditRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE audit_run_id = @audit_run_id
	`, s.dataset, auditRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "audit_run_id", Value: auditRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("audit_run_id", auditRunID).
			Msg("MarkAuditRunFailed: running update query")
		return
	}

	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("audit_run_id", auditRunID).
			Msg("MarkAuditRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().
			Err(err).
			Str("audit_run_id", auditRunID).
			Msg("MarkAuditRunFailed: job completed with error")
	}
}
