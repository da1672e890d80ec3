// Package report consolidates detector output into a single findings list,
// computes aggregate statistics and writes the audit artifacts.
package report

import (
	"sort"
	"strings"

	"github.com/rmartins/expense-audit/internal/config"
	"github.com/rmartins/expense-audit/internal/domain"
)

// Violation categories used for aggregation. Classification looks at the
// reason text only, so rule wording changes must be mirrored here.
const (
	CategoryConflict   = "CONFLITO DE INTERESSES"
	CategoryVenue      = "LOCAL PROIBIDO"
	CategoryMisc       = "DIVERSOS"
	CategorySmurfing   = "SMURFING"
	CategoryBannedItem = "ITEM PROIBIDO"
	CategoryContextual = "FRAUDE CONTEXTUAL"
	CategoryOther      = "OUTRO"
)

// Consolidate merges rule-based violations and contextual findings into one
// deduplicated list. When a transaction ID appears in both sets, the policy
// decides which record survives. Output is ordered by date, then transaction
// ID, regardless of input order.
func Consolidate(violations []domain.Violation, contextual []domain.ContextualFinding, policy config.DedupPolicy) []domain.Finding {
	byID := make(map[string]domain.Finding)

	for _, v := range violations {
		byID[v.TransactionID] = fromViolation(v)
	}

	for _, c := range contextual {
		if _, dup := byID[c.TransactionID]; dup && policy == config.DedupDirectWins {
			continue
		}
		byID[c.TransactionID] = fromContextual(c)
	}

	findings := make([]domain.Finding, 0, len(byID))
	for _, f := range byID {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool {
		if !findings[i].Date.Equal(findings[j].Date) {
			return findings[i].Date.Before(findings[j].Date)
		}
		return findings[i].TransactionID < findings[j].TransactionID
	})
	return findings
}

func fromViolation(v domain.Violation) domain.Finding {
	return domain.Finding{
		TransactionID: v.TransactionID,
		Date:          v.Date,
		Employee:      v.Employee,
		Role:          v.Role,
		Description:   v.Description,
		Amount:        v.Amount,
		Category:      v.Category,
		Vendor:        v.Vendor,
		Reasons:       strings.Join(v.Reasons, " | "),
		Origin:        domain.OriginDirectViolation,
	}
}

func fromContextual(c domain.ContextualFinding) domain.Finding {
	reasons := c.FraudType
	if c.Justification != "" {
		reasons += ": " + c.Justification
	}
	return domain.Finding{
		TransactionID: c.TransactionID,
		Date:          c.Date,
		Employee:      c.Employee,
		Role:          c.Role,
		Description:   c.Description,
		Amount:        c.Amount,
		Category:      c.Category,
		Vendor:        c.Vendor,
		Reasons:       reasons,
		Origin:        domain.OriginContextualFraud,
		Confidence:    c.Confidence,
	}
}

// Classify buckets a finding into one violation category for aggregation.
// The first matching bucket wins; contextual findings always land in
// FRAUDE CONTEXTUAL.
func Classify(f domain.Finding) string {
	if f.Origin == domain.OriginContextualFraud {
		return CategoryContextual
	}

	reasons := strings.ToUpper(f.Reasons)
	switch {
	case strings.Contains(reasons, "CONFLITO"):
		return CategoryConflict
	case strings.Contains(reasons, "SMURFING"):
		return CategorySmurfing
	case strings.Contains(reasons, "BANNED VENUE") || strings.Contains(reasons, "NON-APPROVED VENUE"):
		return CategoryVenue
	case strings.Contains(reasons, "DIVERSOS"):
		return CategoryMisc
	case strings.Contains(reasons, "BANNED ITEM") || strings.Contains(reasons, "BANNED"):
		return CategoryBannedItem
	default:
		return CategoryOther
	}
}
