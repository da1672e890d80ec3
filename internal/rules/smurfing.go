package rules

import (
	"fmt"
	"sort"

	"github.com/rmartins/expense-audit/internal/domain"
)

// smurfingMaxShare is the fraction of the limit each transaction in a
// flagged group must stay below. Groups containing one large payment are
// deliberately excluded: smurfing is a many-small-payments pattern.
const smurfingMaxShare = 0.8

// SmurfingCase marks one transaction as part of a flagged split-payment
// group.
type SmurfingCase struct {
	TransactionID string
	Reason        string
}

// DetectSmurfing groups transactions by (employee, vendor) and scans each
// group with a greedy forward window: the first unconsumed transaction opens
// a window, every later transaction within windowDays of the opener is
// absorbed, and the scan resumes past the absorbed run, so no transaction
// ever belongs to two windows. A window of two or more transactions is
// flagged when its sum exceeds limit and every member stays below 80% of it.
func DetectSmurfing(txs []domain.Transaction, windowDays int, limit float64) []SmurfingCase {
	type groupKey struct {
		employee string
		vendor   string
	}

	groups := make(map[groupKey][]domain.Transaction)
	for _, tx := range txs {
		key := groupKey{tx.Employee, tx.Vendor}
		groups[key] = append(groups[key], tx)
	}

	// Deterministic group order regardless of map iteration.
	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].employee != keys[j].employee {
			return keys[i].employee < keys[j].employee
		}
		return keys[i].vendor < keys[j].vendor
	})

	var cases []SmurfingCase
	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].Date.Equal(group[j].Date) {
				return group[i].Date.Before(group[j].Date)
			}
			return group[i].ID < group[j].ID
		})

		for i := 0; i < len(group); {
			opener := group[i]
			window := []domain.Transaction{opener}
			total := opener.Amount

			j := i + 1
			for j < len(group) && daysBetween(opener, group[j]) <= windowDays {
				window = append(window, group[j])
				total += group[j].Amount
				j++
			}

			if len(window) >= 2 && total > limit && maxAmount(window) < limit*smurfingMaxShare {
				reason := fmt.Sprintf("SMURFING: %d transactions with %s", len(window), key.vendor)
				for _, tx := range window {
					cases = append(cases, SmurfingCase{TransactionID: tx.ID, Reason: reason})
				}
			}

			i = j
		}
	}

	return cases
}

// daysBetween measures whole days from the window opener to a later
// transaction, truncating partial days.
func daysBetween(opener, tx domain.Transaction) int {
	return int(tx.Date.Sub(opener.Date).Hours() / 24)
}

func maxAmount(txs []domain.Transaction) float64 {
	max := txs[0].Amount
	for _, tx := range txs[1:] {
		if tx.Amount > max {
			max = tx.Amount
		}
	}
	return max
}

// MergeSmurfing folds smurfing cases into the direct-violation set, keeping
// the one-record-per-transaction invariant: a transaction that already has a
// direct violation gets the smurfing reason appended; otherwise a new
// SMURFING-kind violation is created from the transaction table. Cases
// referencing unknown transaction IDs are skipped.
func MergeSmurfing(violations []domain.Violation, cases []SmurfingCase, byID map[string]domain.Transaction) []domain.Violation {
	index := make(map[string]int, len(violations))
	merged := make([]domain.Violation, len(violations))
	copy(merged, violations)
	for i, v := range merged {
		index[v.TransactionID] = i
	}

	for _, c := range cases {
		if i, ok := index[c.TransactionID]; ok {
			merged[i].Reasons = append(merged[i].Reasons, c.Reason)
			continue
		}

		tx, ok := byID[c.TransactionID]
		if !ok {
			continue
		}
		merged = append(merged, domain.Violation{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Employee:      tx.Employee,
			Role:          tx.Role,
			Description:   tx.Description,
			Amount:        tx.Amount,
			Category:      tx.Category,
			Vendor:        tx.Vendor,
			Reasons:       []string{c.Reason},
			Kind:          domain.KindSmurfing,
		})
		index[tx.ID] = len(merged) - 1
	}

	return merged
}
