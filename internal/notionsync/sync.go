package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/rmartins/expense-audit/internal/domain"
	"github.com/rmartins/expense-audit/internal/logger"
)

// Syncer binds a NotionService to a findings database so callers only carry
// one value around.
type Syncer struct {
	client     NotionService
	databaseID string
	dryRun     bool
}

// NewSyncer creates a Syncer for the given findings database.
func NewSyncer(client NotionService, databaseID string, dryRun bool) *Syncer {
	return &Syncer{client: client, databaseID: databaseID, dryRun: dryRun}
}

// SyncFindings mirrors the findings of one audit run into the bound
// database.
func (s *Syncer) SyncFindings(ctx context.Context, auditRunID string, findings []domain.Finding) error {
	return SyncFindings(ctx, s.client, s.databaseID, auditRunID, findings, s.dryRun)
}

// SyncFindings mirrors the consolidated findings of one audit run into a
// Notion database. Pages whose transaction ID is no longer in the finding
// set are archived; existing pages are kept; the rest are created. With
// dryRun set, it only logs what it would do.
func SyncFindings(ctx context.Context, notionClient NotionService, notionDBID, auditRunID string, findings []domain.Finding, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("audit_run_id", auditRunID).
		Int("finding_count", len(findings)).
		Bool("dry_run", dryRun).
		Msg("Starting findings sync to Notion")

	validIDs := make(map[string]bool, len(findings))
	for _, f := range findings {
		validIDs[f.TransactionID] = true
	}

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("SyncFindings: querying Notion pages: %w", err)
	}

	existingIDs := make(map[string]bool)
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" {
			existingIDs[txID] = true
		}
	}

	var deleted int
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && validIDs[txID] {
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}

		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		deleted++
	}

	var created, skipped int
	for _, f := range findings {
		if existingIDs[f.TransactionID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", f.TransactionID).
				Msg("[DRY RUN] Would create Notion page for finding")
			created++
			continue
		}

		props := FindingToNotionProperties(f, auditRunID)
		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", f.TransactionID).
				Msg("Failed to create Notion page for finding")
			continue
		}
		log.Info().
			Str("transaction_id", f.TransactionID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page for finding")
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("deleted", deleted).
		Int("total", len(findings)).
		Msg("Findings sync completed")

	return nil
}

// queryAllNotionPages fetches every page of a Notion database, following
// pagination.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractTransactionID reads the transaction ID title property off a Notion
// page, returning "" when the page has no usable title.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
