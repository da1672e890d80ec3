// Package correlate links suspicious emails to nearby transactions using
// keyword, name, amount and vendor heuristics. Its output is the candidate
// set handed to LLM adjudication.
package correlate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rmartins/expense-audit/internal/domain"
)

// fraudKeywords are phrases that, appearing in an email, indicate intent to
// evade expense controls.
var fraudKeywords = []string{
	"book it as", "categorize as", "mask it", "split it",
	"under 50", "angela never looks", "wallace will never know",
	"tech solutions", "wcs supplies", "corporate card",
	"approve verbally", "no receipt", "don't tell",
	"destroy the evidence", "delete", "operation phoenix",
}

// collusionPairs are first-name pairs with a known history of coordinating
// off-book spending. A pair matches when both names appear across
// sender/recipient.
var collusionPairs = map[string][]string{
	"creed_kevin":    {"creed", "kevin"},
	"ryan_kelly":     {"ryan", "kelly"},
	"michael_dwight": {"michael", "dwight"},
	"michael_jan":    {"michael", "jan"},
}

// collusionScoreBonus is added to the suspicion score when a collusion pair
// matched.
const collusionScoreBonus = 2

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),          // $5,000.00
	regexp.MustCompile(`us\$\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?)`),   // US$ 5.000,00
	regexp.MustCompile(`(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*dollars?`),    // 5000 dollars
}

// kShorthandPattern matches "$5k" style amounts, expanded by ×1000.
var kShorthandPattern = regexp.MustCompile(`\$(\d+)k`)

// SuspiciousEmail is an email that carries at least one fraud indicator,
// annotated with what matched and a ranking score.
type SuspiciousEmail struct {
	Email            domain.Email
	MatchedKeywords  []string
	CollusionPair    string // empty when no pair matched
	MentionedAmounts []float64
	Score            int
}

// ExtractAmounts pulls every monetary amount mentioned in free text,
// covering $, US$, "dollars" and $Nk notations. Amounts that fail numeric
// parsing after comma-stripping are skipped.
func ExtractAmounts(text string) []float64 {
	lower := strings.ToLower(text)

	var amounts []float64
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			raw := strings.ReplaceAll(m[1], ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			amounts = append(amounts, v)
		}
	}
	for _, m := range kShorthandPattern.FindAllStringSubmatch(lower, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, v*1000)
	}

	return amounts
}

// ScoreEmails filters the corpus down to suspicious emails and ranks them by
// suspicion score, highest first. An email qualifies when it contains a
// fraud keyword, matches a collusion pair, or mentions a monetary amount.
func ScoreEmails(emails []domain.Email) []SuspiciousEmail {
	var suspicious []SuspiciousEmail

	for _, email := range emails {
		text := strings.ToLower(email.Subject + " " + email.Body)

		var keywords []string
		for _, kw := range fraudKeywords {
			if strings.Contains(text, kw) {
				keywords = append(keywords, kw)
			}
		}

		pair := matchCollusionPair(email.Sender, email.Recipient)
		amounts := ExtractAmounts(email.Subject + " " + email.Body)

		if len(keywords) == 0 && pair == "" && len(amounts) == 0 {
			continue
		}

		score := len(keywords)
		if pair != "" {
			score += collusionScoreBonus
		}

		suspicious = append(suspicious, SuspiciousEmail{
			Email:            email,
			MatchedKeywords:  keywords,
			CollusionPair:    pair,
			MentionedAmounts: amounts,
			Score:            score,
		})
	}

	sort.SliceStable(suspicious, func(i, j int) bool {
		return suspicious[i].Score > suspicious[j].Score
	})

	return suspicious
}

func matchCollusionPair(sender, recipient string) string {
	senderLower := strings.ToLower(sender)
	recipientLower := strings.ToLower(recipient)

	// Deterministic pair iteration.
	names := make([]string, 0, len(collusionPairs))
	for name := range collusionPairs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		members := collusionPairs[name]
		if containsAny(senderLower, members) && containsAny(recipientLower, members) {
			return name
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
