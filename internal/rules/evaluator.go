// Package rules implements the deterministic policy checks of the expense
// audit: per-transaction violations and split-payment (smurfing) detection.
package rules

import (
	"fmt"
	"strings"

	"github.com/rmartins/expense-audit/internal/domain"
)

// miscCategoryLimit is the maximum allowed amount for the "Diversos"
// (miscellaneous) category.
const miscCategoryLimit = 5.0

// bannedItemGroup is a named group of banned keywords. Within a group the
// first matching keyword wins; each group contributes at most one reason.
type bannedItemGroup struct {
	name     string
	message  string
	keywords []string
}

var bannedItemGroups = []bannedItemGroup{
	{
		name:    "illegal entertainment",
		message: "Banned item (illegal entertainment)",
		keywords: []string{
			"magic", "handcuff", "chain", "smoke powder", "stripper",
			"marked deck", "illusionist kit", "houdini", "escapism", "trained pigeon",
		},
	},
	{
		name:    "weapons and surveillance gear",
		message: "Banned item (weapons and surveillance gear)",
		keywords: []string{
			"weapon", "trap", "sword", "katana", "ninja star", "nunchaku",
			"pepper spray", "camouflage", "surveillance", "night vision binoculars",
			"walkie talkie", "detective", "tactical security",
		},
	},
	{
		name:    "conflict of interest",
		message: "CONFLITO DE INTERESSES: related side business",
		keywords: []string{
			"wuphf", "serenity", "candle", "beet", "tech solutions",
			"wcs supplies", "glue quality control", "paper texture audit",
			"dunder infinity",
		},
	},
}

// approvedMealVenues is the allow-list for corporate meals, matched
// case-insensitively as substrings of the vendor.
var approvedMealVenues = []string{
	"chili's", "cugino's", "cooper's seafood", "poor richard's pub",
}

// Evaluate runs every policy check against one transaction and returns all
// reasons that fired, in check order. A clean transaction yields nil.
// Checks are independent; a later check never suppresses an earlier reason.
func Evaluate(tx domain.Transaction) []string {
	var reasons []string

	description := strings.ToLower(tx.Description)
	vendor := strings.ToLower(tx.Vendor)
	category := strings.ToLower(tx.Category)

	if tx.Category == "Diversos" && tx.Amount > miscCategoryLimit {
		reasons = append(reasons, `Category "Diversos" above the US$ 5.00 limit`)
	}

	if strings.Contains(description, "hooters") {
		reasons = append(reasons, "Hooters is an explicitly banned venue")
	}

	if strings.Contains(description, "chrysler sebring") || strings.Contains(description, "convertible") {
		reasons = append(reasons, "Convertible car (Chrysler Sebring) is banned")
	}

	for _, group := range bannedItemGroups {
		for _, kw := range group.keywords {
			if strings.Contains(description, kw) {
				reasons = append(reasons, group.message)
				break
			}
		}
	}

	// Corporate meals must happen at pre-approved venues. Poor Richard's Pub
	// is lunch-only and always needs a manual follow-up.
	if strings.Contains(category, "refei") || strings.Contains(category, "meal") {
		approved := false
		for _, venue := range approvedMealVenues {
			if strings.Contains(vendor, venue) {
				approved = true
				break
			}
		}
		switch {
		case approved && strings.Contains(vendor, "poor richard"):
			reasons = append(reasons, "Poor Richard's Pub: verify this was lunch (lunch only)")
		case !approved:
			reasons = append(reasons, fmt.Sprintf("Meal at non-approved venue: %s", tx.Vendor))
		}
	}

	return reasons
}

// EvaluateAll applies Evaluate to every transaction and materializes one
// Violation per transaction that triggered at least one check, preserving
// input order.
func EvaluateAll(txs []domain.Transaction) []domain.Violation {
	var violations []domain.Violation
	for _, tx := range txs {
		reasons := Evaluate(tx)
		if len(reasons) == 0 {
			continue
		}
		violations = append(violations, domain.Violation{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Employee:      tx.Employee,
			Role:          tx.Role,
			Description:   tx.Description,
			Amount:        tx.Amount,
			Category:      tx.Category,
			Vendor:        tx.Vendor,
			Reasons:       reasons,
			Kind:          domain.KindDirect,
		})
	}
	return violations
}
