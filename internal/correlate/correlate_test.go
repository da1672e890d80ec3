package correlate

import (
	"math"
	"testing"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

func email(sender, recipient, subject, body string, date time.Time) domain.Email {
	return domain.Email{
		Sender:        sender,
		SenderName:    sender,
		Recipient:     recipient,
		RecipientName: recipient,
		Date:          date,
		Subject:       subject,
		Body:          body,
	}
}

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{"plain dollar", "send $450 today", []float64{450}},
		{"with thousands separator", "the invoice is $5,000.00 total", []float64{5000}},
		{"us dollar prefix", "wire US$ 250 by friday", []float64{250}},
		{"spelled out", "about 300 dollars, give or take", []float64{300}},
		{"k shorthand", "budget is $5k for the party", []float64{5, 5000}},
		{"no amounts", "lunch was great", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmounts(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractAmounts(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 0.001 {
					t.Errorf("ExtractAmounts(%q)[%d] = %v, want %v", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScoreEmails(t *testing.T) {
	base := time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)
	emails := []domain.Email{
		email("Pam Beesly <pam@dm.com>", "Jim Halpert <jim@dm.com>",
			"Lunch", "See you at noon.", base),
		email("Kevin Malone <kevin@dm.com>", "Creed Bratton <creed@dm.com>",
			"Chili", "Keep it under 50 and there's no receipt anyway.", base),
		email("Ryan Howard <ryan@dm.com>", "Kelly Kapoor <kelly@dm.com>",
			"Hey", "Miss you.", base),
	}

	suspicious := ScoreEmails(emails)

	if len(suspicious) != 2 {
		t.Fatalf("ScoreEmails() kept %d emails, want 2", len(suspicious))
	}

	// Two keywords plus the creed/kevin collusion pair outranks the
	// keyword-free ryan/kelly pair.
	top := suspicious[0]
	if top.CollusionPair != "creed_kevin" {
		t.Errorf("top CollusionPair = %q, want creed_kevin", top.CollusionPair)
	}
	if len(top.MatchedKeywords) != 2 {
		t.Errorf("top MatchedKeywords = %v, want 2 entries", top.MatchedKeywords)
	}
	if top.Score != 4 {
		t.Errorf("top Score = %d, want 4 (2 keywords + collusion bonus)", top.Score)
	}

	if suspicious[1].CollusionPair != "ryan_kelly" || suspicious[1].Score != 2 {
		t.Errorf("second = %+v, want ryan_kelly with score 2", suspicious[1])
	}
}

func TestScoreEmails_AmountAloneQualifies(t *testing.T) {
	base := time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)
	suspicious := ScoreEmails([]domain.Email{
		email("Pam Beesly <pam@dm.com>", "Jim Halpert <jim@dm.com>",
			"Reimbursement", "The total came to $340.", base),
	})

	if len(suspicious) != 1 {
		t.Fatalf("ScoreEmails() kept %d emails, want 1", len(suspicious))
	}
	if suspicious[0].Score != 0 {
		t.Errorf("Score = %d, want 0 (amounts qualify but do not score)", suspicious[0].Score)
	}
	if len(suspicious[0].MentionedAmounts) != 1 {
		t.Errorf("MentionedAmounts = %v", suspicious[0].MentionedAmounts)
	}
}

func crossMatchFixture() (SuspiciousEmail, domain.Transaction) {
	date := time.Date(2023, 3, 10, 9, 0, 0, 0, time.UTC)
	se := SuspiciousEmail{
		Email: email("Michael Scott <michael@dm.com>", "Dwight Schrute <dwight@dm.com>",
			"Expenses", "Dwight, book the $340 at Staples as supplies.", date),
		MentionedAmounts: []float64{340},
		Score:            1,
	}
	tx := domain.Transaction{
		ID:       "TX1",
		Date:     date.Add(48 * time.Hour),
		Employee: "Dwight Schrute",
		Amount:   340,
		Category: "Material",
		Vendor:   "Staples",
	}
	return se, tx
}

func TestCrossMatch_AllSignals(t *testing.T) {
	se, tx := crossMatchFixture()

	pairs := CrossMatch(se, []domain.Transaction{tx}, 7, 3)

	if len(pairs) != 1 {
		t.Fatalf("CrossMatch() = %d pairs, want 1", len(pairs))
	}
	// employee(+3) + author(+2) + amount(+5) + vendor(+4) = 14
	if pairs[0].Score != 14 {
		t.Errorf("Score = %d, want 14 (reasons: %v)", pairs[0].Score, pairs[0].Reasons)
	}
	if len(pairs[0].Reasons) != 4 {
		t.Errorf("Reasons = %v, want 4 entries", pairs[0].Reasons)
	}
}

func TestCrossMatch_Monotonic(t *testing.T) {
	// Adding a matching signal never decreases the score.
	se, tx := crossMatchFixture()

	weak := tx
	weak.Employee = "Stanley Hudson"
	weak.Vendor = "Unmentioned Vendor Inc"
	weak.Amount = 77.77

	weakPairs := CrossMatch(se, []domain.Transaction{weak}, 7, 0)
	strongPairs := CrossMatch(se, []domain.Transaction{tx}, 7, 0)

	if len(weakPairs) != 1 || len(strongPairs) != 1 {
		t.Fatalf("expected one pair each, got %d and %d", len(weakPairs), len(strongPairs))
	}
	if strongPairs[0].Score <= weakPairs[0].Score {
		t.Errorf("strong score %d not above weak score %d", strongPairs[0].Score, weakPairs[0].Score)
	}
}

func TestCrossMatch_ThresholdAndWindow(t *testing.T) {
	se, tx := crossMatchFixture()

	t.Run("below threshold dropped", func(t *testing.T) {
		weak := tx
		weak.Employee = "Stanley Hudson"
		weak.Vendor = "Unmentioned Vendor Inc"
		weak.Amount = 77.77
		weak.Category = "Travel"

		if pairs := CrossMatch(se, []domain.Transaction{weak}, 7, 3); len(pairs) != 0 {
			t.Errorf("CrossMatch() = %v, want none below min score", pairs)
		}
	})

	t.Run("outside window dropped", func(t *testing.T) {
		far := tx
		far.Date = se.Email.Date.Add(8 * 24 * time.Hour)

		if pairs := CrossMatch(se, []domain.Transaction{far}, 7, 3); len(pairs) != 0 {
			t.Errorf("CrossMatch() = %v, want none outside window", pairs)
		}
	})

	t.Run("amount match alone is retained", func(t *testing.T) {
		amountOnly := tx
		amountOnly.Employee = "Stanley Hudson"
		amountOnly.Vendor = "Unmentioned Vendor Inc"
		amountOnly.Category = "Travel"

		pairs := CrossMatch(se, []domain.Transaction{amountOnly}, 7, 3)
		if len(pairs) != 1 || pairs[0].Score != 5 {
			t.Fatalf("CrossMatch() = %v, want one pair with score 5", pairs)
		}
	})
}

func TestCrossMatchAll_TransactionMayPairWithMultipleEmails(t *testing.T) {
	se1, tx := crossMatchFixture()
	se2 := se1
	se2.Email.Sender = "Jan Levinson <jan@dm.com>"
	se2.Email.Body = "Dwight spent $340 at Staples again."

	pairs := CrossMatchAll([]SuspiciousEmail{se1, se2}, []domain.Transaction{tx}, 7, 3)

	if len(pairs) != 2 {
		t.Errorf("CrossMatchAll() = %d pairs, want 2 (no cross-email dedup)", len(pairs))
	}
}
