package adjudicate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rmartins/expense-audit/internal/correlate"
	"github.com/rmartins/expense-audit/internal/domain"
)

// mockModelClient is a scripted ModelClient for testing.
type mockModelClient struct {
	mu       sync.Mutex
	calls    int
	response func(user string) (string, error)
}

func (m *mockModelClient) Generate(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.response(user)
}

func (m *mockModelClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pair(txID string, score int) correlate.Pair {
	date := time.Date(2023, 3, 10, 9, 0, 0, 0, time.UTC)
	return correlate.Pair{
		Email: correlate.SuspiciousEmail{
			Email: domain.Email{
				Sender:    "Michael Scott <michael@dm.com>",
				Recipient: "Dwight Schrute <dwight@dm.com>",
				Date:      date,
				Subject:   "Expenses",
				Body:      "Book it as supplies.",
			},
		},
		Tx: domain.Transaction{
			ID:       txID,
			Date:     date,
			Employee: "Dwight Schrute",
			Amount:   340,
			Category: "Material",
			Vendor:   "Staples",
		},
		Score:   score,
		Reasons: []string{"employee_mentioned"},
	}
}

func fraudJSON(confidence int) string {
	return fmt.Sprintf(`{"is_fraud": true, "fraud_type": "MASKING", "confidence": %d, "evidence": "book it as supplies", "justification": "explicit instruction to relabel"}`, confidence)
}

func TestAdjudicateAll_AcceptanceThreshold(t *testing.T) {
	tests := []struct {
		name     string
		response string
		accepted int
	}{
		{"confident fraud accepted", fraudJSON(85), 1},
		{"at threshold accepted", fraudJSON(70), 1},
		{"below threshold excluded", fraudJSON(69), 0},
		{"not fraud excluded", `{"is_fraud": false, "fraud_type": "", "confidence": 95, "evidence": "", "justification": "routine expense"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockModelClient{response: func(string) (string, error) { return tt.response, nil }}
			a := New(client, 70, 50, 2)

			findings, stats := a.AdjudicateAll(context.Background(), []correlate.Pair{pair("TX1", 8)})

			if len(findings) != tt.accepted {
				t.Errorf("got %d findings, want %d", len(findings), tt.accepted)
			}
			if stats.Accepted != tt.accepted || stats.Failed != 0 || stats.Aborted {
				t.Errorf("stats = %+v", stats)
			}
		})
	}
}

func TestAdjudicateAll_FindingFields(t *testing.T) {
	client := &mockModelClient{response: func(string) (string, error) { return fraudJSON(90), nil }}
	a := New(client, 70, 50, 1)

	findings, _ := a.AdjudicateAll(context.Background(), []correlate.Pair{pair("TX1", 8)})

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.TransactionID != "TX1" || f.FraudType != "MASKING" || f.Confidence != 90 {
		t.Errorf("finding = %+v", f)
	}
	if f.CrossMatchScore != 8 || f.EmailSender == "" {
		t.Errorf("finding not annotated with pair context: %+v", f)
	}
}

func TestAdjudicateAll_CapKeepsHighestScores(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	client := &mockModelClient{response: func(user string) (string, error) {
		mu.Lock()
		seen = append(seen, user)
		mu.Unlock()
		return fraudJSON(90), nil
	}}
	a := New(client, 70, 2, 1)

	pairs := []correlate.Pair{pair("TX-low", 3), pair("TX-high", 9), pair("TX-mid", 5)}
	findings, stats := a.AdjudicateAll(context.Background(), pairs)

	if stats.Submitted != 2 || client.callCount() != 2 {
		t.Fatalf("submitted %d calls, want 2 (stats %+v)", client.callCount(), stats)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	// Highest scores first, low pair silently never evaluated.
	if findings[0].TransactionID != "TX-high" || findings[1].TransactionID != "TX-mid" {
		t.Errorf("findings order: %s, %s", findings[0].TransactionID, findings[1].TransactionID)
	}
	for _, prompt := range seen {
		if prompt == "" {
			t.Error("empty prompt sent to model")
		}
	}
}

func TestAdjudicateAll_CircuitBreaker(t *testing.T) {
	client := &mockModelClient{response: func(string) (string, error) {
		return "", fmt.Errorf("model unavailable")
	}}
	a := New(client, 70, 0, 1)

	var pairs []correlate.Pair
	for i := 0; i < 9; i++ {
		pairs = append(pairs, pair(fmt.Sprintf("TX%d", i), 5))
	}

	findings, stats := a.AdjudicateAll(context.Background(), pairs)

	if len(findings) != 0 {
		t.Errorf("got %d findings, want 0", len(findings))
	}
	if !stats.Aborted {
		t.Error("expected the circuit breaker to trip")
	}
	if client.callCount() != 5 {
		t.Errorf("model called %d times, want exactly 5 before abort", client.callCount())
	}
	if stats.Failed != 5 {
		t.Errorf("stats.Failed = %d, want 5", stats.Failed)
	}
}

func TestAdjudicateAll_BreakerResetsOnSuccess(t *testing.T) {
	var n int
	client := &mockModelClient{response: func(string) (string, error) {
		n++
		// Alternate failures and successes: consecutive count never
		// reaches the threshold.
		if n%2 == 1 {
			return "", fmt.Errorf("flaky")
		}
		return fraudJSON(90), nil
	}}
	a := New(client, 70, 0, 1)

	var pairs []correlate.Pair
	for i := 0; i < 12; i++ {
		pairs = append(pairs, pair(fmt.Sprintf("TX%02d", i), 5))
	}

	findings, stats := a.AdjudicateAll(context.Background(), pairs)

	if stats.Aborted {
		t.Error("breaker tripped despite interleaved successes")
	}
	if len(findings) != 6 {
		t.Errorf("got %d findings, want 6", len(findings))
	}
}

func TestAdjudicateAll_MalformedResponseExcluded(t *testing.T) {
	client := &mockModelClient{response: func(string) (string, error) {
		return "I think this is definitely fraud!", nil
	}}
	a := New(client, 70, 50, 1)

	findings, stats := a.AdjudicateAll(context.Background(), []correlate.Pair{pair("TX1", 8)})

	if len(findings) != 0 {
		t.Errorf("got %d findings, want 0", len(findings))
	}
	if stats.Failed != 1 {
		t.Errorf("stats.Failed = %d, want 1", stats.Failed)
	}
}

func TestWithoutModel(t *testing.T) {
	pairs := []correlate.Pair{pair("TX-low", 3), pair("TX-top", 14), pair("TX-high", 9)}

	findings := WithoutModel(pairs)

	if len(findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(findings))
	}
	if findings[0].TransactionID != "TX-top" {
		t.Errorf("expected highest score first, got %s", findings[0].TransactionID)
	}
	if findings[0].FraudType != "CRUZAMENTO_SUSPEITO" {
		t.Errorf("FraudType = %q", findings[0].FraudType)
	}
	if findings[0].Confidence != 100 {
		t.Errorf("confidence = %d; want 100 (capped)", findings[0].Confidence)
	}
	if findings[1].Confidence != 90 || findings[2].Confidence != 30 {
		t.Errorf("confidences = %d, %d; want 10x the cross-match score",
			findings[1].Confidence, findings[2].Confidence)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain JSON", fraudJSON(80), false},
		{"fenced JSON", "```json\n" + fraudJSON(80) + "\n```", false},
		{"bare fences", "```\n" + fraudJSON(80) + "\n```", false},
		{"chatty wrapper", "Here is my analysis:\n" + fraudJSON(80) + "\nHope this helps!", false},
		{"not JSON", "definitely fraud", true},
		{"empty", "", true},
		{"confidence out of range", `{"is_fraud": true, "fraud_type": "COLLUSION", "confidence": 150}`, true},
		{"fraud without type", `{"is_fraud": true, "fraud_type": "", "confidence": 80}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVerdict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v.Confidence != 80 {
				t.Errorf("Confidence = %d, want 80", v.Confidence)
			}
		})
	}
}
