package notionsync

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"

	"github.com/rmartins/expense-audit/internal/domain"
)

// fakeNotion records sync operations without talking to the API.
type fakeNotion struct {
	pages    []notionapi.Page
	created  []string
	archived []string
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	title := props["Transaction ID"].(notionapi.TitleProperty)
	f.created = append(f.created, title.Title[0].Text.Content)
	return &notionapi.Page{ID: notionapi.ObjectID("page-" + title.Title[0].Text.Content)}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: f.pages, HasMore: false}, nil
}

func (f *fakeNotion) DeletePage(ctx context.Context, pageID string) error {
	f.archived = append(f.archived, pageID)
	return nil
}

func existingPage(txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID("page-" + txID),
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: txID}},
			},
		},
	}
}

func finding(txID string) domain.Finding {
	return domain.Finding{
		TransactionID: txID,
		Date:          time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
		Employee:      "Dwight Schrute",
		Amount:        120,
		Category:      "Diversos",
		Vendor:        "Magic Shop",
		Reasons:       "Banned item (illegal entertainment): magic",
		Origin:        domain.OriginDirectViolation,
	}
}

func TestSyncFindings(t *testing.T) {
	fake := &fakeNotion{
		pages: []notionapi.Page{existingPage("TX1"), existingPage("TX-stale")},
	}
	findings := []domain.Finding{finding("TX1"), finding("TX2")}

	if err := SyncFindings(context.Background(), fake, "db", "run-1", findings, false); err != nil {
		t.Fatalf("SyncFindings() error = %v", err)
	}

	if len(fake.created) != 1 || fake.created[0] != "TX2" {
		t.Errorf("created = %v, want [TX2]", fake.created)
	}
	if len(fake.archived) != 1 || fake.archived[0] != "page-TX-stale" {
		t.Errorf("archived = %v, want [page-TX-stale]", fake.archived)
	}
}

func TestSyncFindings_DryRun(t *testing.T) {
	fake := &fakeNotion{
		pages: []notionapi.Page{existingPage("TX-stale")},
	}

	if err := SyncFindings(context.Background(), fake, "db", "run-1", []domain.Finding{finding("TX2")}, true); err != nil {
		t.Fatalf("SyncFindings() error = %v", err)
	}

	if len(fake.created) != 0 || len(fake.archived) != 0 {
		t.Errorf("dry run should not mutate: created=%v archived=%v", fake.created, fake.archived)
	}
}

func TestFindingToNotionProperties(t *testing.T) {
	props := FindingToNotionProperties(finding("TX1"), "run-9")

	title := props["Transaction ID"].(notionapi.TitleProperty)
	if title.Title[0].Text.Content != "TX1" {
		t.Errorf("title = %q", title.Title[0].Text.Content)
	}
	amount := props["Amount"].(notionapi.NumberProperty)
	if amount.Number != 120 {
		t.Errorf("amount = %v", amount.Number)
	}
	vt := props["Violation Type"].(notionapi.SelectProperty)
	if vt.Select.Name != "ITEM PROIBIDO" {
		t.Errorf("violation type = %q", vt.Select.Name)
	}
	run := props["Audit Run"].(notionapi.RichTextProperty)
	if run.RichText[0].Text.Content != "run-9" {
		t.Errorf("audit run = %q", run.RichText[0].Text.Content)
	}
}
