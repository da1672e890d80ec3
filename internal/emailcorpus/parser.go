// Package emailcorpus parses the flat-file email dump used as evidence in
// contextual fraud detection.
package emailcorpus

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

// BlockDelimiter separates emails in the corpus file.
const BlockDelimiter = "-------------------------------------------------------------------------------"

// serverDumpMarker flags non-email blocks injected by the export tool.
const serverDumpMarker = "SERVER DUMP"

const dateLayout = "2006-01-02 15:04"

var (
	senderRe    = regexp.MustCompile(`From:\s*(.+)`)
	recipientRe = regexp.MustCompile(`To:\s*(.+)`)
	dateRe      = regexp.MustCompile(`Date:\s*(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2})`)
	subjectRe   = regexp.MustCompile(`Subject:\s*(.+)`)
	messageRe   = regexp.MustCompile(`(?s)Message:\s*(.+)`)
	nameRe      = regexp.MustCompile(`^([^<]+)<`)
)

// ParseStats reports how many blocks survived parsing. Dropped blocks are a
// normalization-at-ingest outcome, not an error.
type ParseStats struct {
	Parsed  int
	Dropped int
}

// ParseFile reads and parses an email corpus file.
func ParseFile(path string) ([]domain.Email, ParseStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("ParseFile: reading corpus: %w", err)
	}
	emails, stats := Parse(string(raw))
	return emails, stats, nil
}

// Parse splits raw corpus content into blocks and extracts one Email per
// well-formed block. Blocks that are blank, marked as server dumps, or
// missing any of the five fields (including an unparsable date) are dropped
// and counted in the returned stats.
func Parse(content string) ([]domain.Email, ParseStats) {
	blocks := strings.Split(content, BlockDelimiter)

	var emails []domain.Email
	var stats ParseStats

	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		if strings.Contains(block, serverDumpMarker) {
			continue
		}

		email, ok := parseBlock(block)
		if !ok {
			stats.Dropped++
			continue
		}
		emails = append(emails, email)
		stats.Parsed++
	}

	return emails, stats
}

// parseBlock extracts the five labeled fields from one block. It returns
// false when any field is missing or the date does not parse; partial
// records are never produced.
func parseBlock(block string) (domain.Email, bool) {
	sender := firstGroup(senderRe, block)
	recipient := firstGroup(recipientRe, block)
	dateStr := firstGroup(dateRe, block)
	subject := firstGroup(subjectRe, block)
	body := firstGroup(messageRe, block)

	if sender == "" || recipient == "" || dateStr == "" || subject == "" || body == "" {
		return domain.Email{}, false
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return domain.Email{}, false
	}

	return domain.Email{
		Sender:        sender,
		SenderName:    extractName(sender),
		Recipient:     recipient,
		RecipientName: extractName(recipient),
		Date:          date,
		Subject:       subject,
		Body:          body,
	}, true
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractName returns the display-name part of a "Name <addr>" string, or
// the whole string when no angle bracket is present.
func extractName(addr string) string {
	if m := nameRe.FindStringSubmatch(addr); m != nil {
		return strings.TrimSpace(m[1])
	}
	return addr
}
