// Package bigquery persists audit runs and findings to BigQuery. It is an
// optional sink: the pipeline only touches it when a project and dataset are
// configured.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// AuditRunRow tracks one audit execution in <dataset>.audit_runs.
type AuditRunRow struct {
	AuditRunID string `bigquery:"audit_run_id"`

	StartedAt  time.Time              `bigquery:"started_ts"`
	FinishedAt bigquery.NullTimestamp `bigquery:"finished_ts"`

	TransactionCount int `bigquery:"transaction_count"`
	EmailCount       int `bigquery:"email_count"`
	FindingCount     int `bigquery:"finding_count"`

	Status       string `bigquery:"status"` // RUNNING, SUCCESS, FAILED
	ErrorMessage string `bigquery:"error_message"`
}

// FindingRow is one consolidated finding in <dataset>.findings.
type FindingRow struct {
	AuditRunID    string    `bigquery:"audit_run_id"`
	TransactionID string    `bigquery:"transaction_id"`
	Date          time.Time `bigquery:"transaction_date"`
	Employee      string    `bigquery:"employee"`
	Role          string    `bigquery:"role"`
	Description   string    `bigquery:"description"`
	Amount        float64   `bigquery:"amount"`
	Category      string    `bigquery:"category"`
	Vendor        string    `bigquery:"vendor"`
	Reasons       string    `bigquery:"reasons"`
	Origin        string    `bigquery:"origin"`
	Confidence    int       `bigquery:"confidence"`
	ViolationType string    `bigquery:"violation_type"`
	CreatedAt     time.Time `bigquery:"created_ts"`
}
