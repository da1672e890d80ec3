package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/rmartins/expense-audit/internal/domain"
	"github.com/rmartins/expense-audit/internal/report"
)

// FindingToNotionProperties converts one consolidated finding to the
// properties of the Notion findings database. The transaction ID is the page
// title so stale-page detection can key on it.
func FindingToNotionProperties(f domain.Finding, auditRunID string) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: f.TransactionID,
					},
				},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(f.Date)
					return &d
				}(),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: f.Amount,
		},
		"Origin": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(f.Origin),
			},
		},
		"Violation Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: report.Classify(f),
			},
		},
		"Confidence": notionapi.NumberProperty{
			Number: float64(f.Confidence),
		},
	}

	if f.Employee != "" {
		props["Employee"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: f.Employee,
					},
				},
			},
		}
	}

	if f.Vendor != "" {
		props["Vendor"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: f.Vendor,
			},
		}
	}

	if f.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: f.Category,
			},
		}
	}

	if f.Reasons != "" {
		props["Reasons"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: f.Reasons,
					},
				},
			},
		}
	}

	if auditRunID != "" {
		props["Audit Run"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: auditRunID,
					},
				},
			},
		}
	}

	return props
}
