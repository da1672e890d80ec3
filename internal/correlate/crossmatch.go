package correlate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

// Cross-match signal weights. Signals are independent; the pair score is
// their sum.
const (
	weightEmployeeMentioned = 3
	weightAuthorInvolved    = 2
	weightAmountMatch       = 5
	weightVendorMentioned   = 4
	weightCategoryMentioned = 1
)

// amountTolerance is the allowed difference between a mentioned amount and
// the transaction amount, in dollars.
const amountTolerance = 1.0

// Pair is a retained (email, transaction) candidate, annotated with the
// match score and the signals that produced it. Pairs exist only between
// correlation and adjudication; they are never persisted.
type Pair struct {
	Email   SuspiciousEmail
	Tx      domain.Transaction
	Score   int
	Reasons []string
}

// CrossMatch scores one suspicious email against every transaction within
// windowDays of the email's timestamp and retains pairs scoring at least
// minScore. A transaction may be retained against multiple emails; no
// deduplication happens here.
func CrossMatch(email SuspiciousEmail, txs []domain.Transaction, windowDays, minScore int) []Pair {
	window := time.Duration(windowDays) * 24 * time.Hour
	start := email.Email.Date.Add(-window)
	end := email.Email.Date.Add(window)

	text := strings.ToLower(email.Email.Subject + " " + email.Email.Body)
	senderLower := strings.ToLower(email.Email.Sender)
	recipientLower := strings.ToLower(email.Email.Recipient)

	var pairs []Pair
	for _, tx := range txs {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}

		score := 0
		var reasons []string

		employee := strings.ToLower(tx.Employee)
		if anyTokenIn(employee, text) {
			score += weightEmployeeMentioned
			reasons = append(reasons, "employee_mentioned")
		}

		if strings.Contains(senderLower, employee) || strings.Contains(recipientLower, employee) {
			score += weightAuthorInvolved
			reasons = append(reasons, "author_involved")
		}

		for _, amount := range email.MentionedAmounts {
			if math.Abs(amount-tx.Amount) < amountTolerance {
				score += weightAmountMatch
				reasons = append(reasons, fmt.Sprintf("amount_match:%.2f", amount))
				break
			}
		}

		vendor := strings.ToLower(tx.Vendor)
		if vendor != "" && strings.Contains(text, vendor) {
			score += weightVendorMentioned
			reasons = append(reasons, "vendor_mentioned")
		}

		if anyTokenIn(strings.ToLower(tx.Category), text) {
			score += weightCategoryMentioned
			reasons = append(reasons, "category_mentioned")
		}

		if score >= minScore {
			pairs = append(pairs, Pair{Email: email, Tx: tx, Score: score, Reasons: reasons})
		}
	}

	return pairs
}

// CrossMatchAll runs CrossMatch for every suspicious email, preserving the
// email ranking order.
func CrossMatchAll(emails []SuspiciousEmail, txs []domain.Transaction, windowDays, minScore int) []Pair {
	var pairs []Pair
	for _, email := range emails {
		pairs = append(pairs, CrossMatch(email, txs, windowDays, minScore)...)
	}
	return pairs
}

// anyTokenIn reports whether any whitespace-separated token of s appears in
// text.
func anyTokenIn(s, text string) bool {
	for _, token := range strings.Fields(s) {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}
