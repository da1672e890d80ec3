package report

import (
	"sort"
	"strings"

	"github.com/rmartins/expense-audit/internal/domain"
)

// Manual-review band: expenses in this range sit below the approval
// threshold but above petty cash, so they get a regional-manager
// approval check when nothing else flagged them.
const (
	reviewMinAmount = 50.0
	reviewMaxAmount = 500.0
)

// benignVendorMarkers skip vendors whose charges in the review band are
// routine (coffee runs).
var benignVendorMarkers = []string{"coffee", "café", "cafe", "starbucks", "dunkin"}

// ManualReview returns the transactions that should be queued for a manual
// approval check: amount in the (50, 500] band, not already flagged by any
// detector, and not from an always-benign vendor. Output is ordered by
// amount descending so the costliest unchecked expenses come first.
func ManualReview(txs []domain.Transaction, findings []domain.Finding) []domain.Transaction {
	flagged := make(map[string]bool, len(findings))
	for _, f := range findings {
		flagged[f.TransactionID] = true
	}

	var queue []domain.Transaction
	for _, tx := range txs {
		if tx.Amount <= reviewMinAmount || tx.Amount > reviewMaxAmount {
			continue
		}
		if flagged[tx.ID] || benignVendor(tx.Vendor) {
			continue
		}
		queue = append(queue, tx)
	}

	sort.Slice(queue, func(i, j int) bool {
		if queue[i].Amount != queue[j].Amount {
			return queue[i].Amount > queue[j].Amount
		}
		return queue[i].ID < queue[j].ID
	})
	return queue
}

func benignVendor(vendor string) bool {
	v := strings.ToLower(vendor)
	for _, marker := range benignVendorMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}
