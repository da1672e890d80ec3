package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/rmartins/expense-audit/internal/domain"
	"github.com/rmartins/expense-audit/internal/report"
)

// InsertFindings streams the consolidated findings of one audit run into the
// findings table. A nil or empty slice is a no-op.
func (s *Store) InsertFindings(ctx context.Context, auditRunID string, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]*FindingRow, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, &FindingRow{
			AuditRunID:    auditRunID,
			TransactionID: f.TransactionID,
			Date:          f.Date,
			Employee:      f.Employee,
			Role:          f.Role,
			Description:   f.Description,
			Amount:        f.Amount,
			Category:      f.Category,
			Vendor:        f.Vendor,
			Reasons:       f.Reasons,
			Origin:        string(f.Origin),
			Confidence:    f.Confidence,
			ViolationType: report.Classify(f),
			CreatedAt:     now,
		})
	}

	inserter := s.client.Dataset(s.dataset).Table(findingsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertFindings: inserting rows: %w", err)
	}

	return nil
}

// ListFindingsByRun retrieves the stored findings of one audit run, ordered
// by transaction date.
func (s *Store) ListFindingsByRun(ctx context.Context, auditRunID string) ([]*FindingRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			audit_run_id,
			transaction_id,
			transaction_date,
			employee,
			role,
			description,
			amount,
			category,
			vendor,
			reasons,
			origin,
			confidence,
			violation_type,
			created_ts
		FROM %s.%s
		WHERE audit_run_id = @audit_run_id
		ORDER BY transaction_date, transaction_id
	`, s.dataset, findingsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "audit_run_id", Value: auditRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListFindingsByRun: query read: %w", err)
	}

	var rows []*FindingRow
	for {
		var r FindingRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFindingsByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
