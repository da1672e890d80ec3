package rules

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rmartins/expense-audit/internal/domain"
)

func tx(id, employee, description string, amount float64, category string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Date:        time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		Employee:    employee,
		Role:        "Salesman",
		Description: description,
		Amount:      amount,
		Category:    category,
		Vendor:      domain.VendorFromDescription(description),
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		tx          domain.Transaction
		wantReasons []string // substrings, in order
	}{
		{
			name:        "clean transaction",
			tx:          tx("TX1", "Jim Halpert", "Staples - printer paper", 30, "Material"),
			wantReasons: nil,
		},
		{
			name:        "misc category over limit",
			tx:          tx("TX2", "Kevin Malone", "Party favors", 5.01, "Diversos"),
			wantReasons: []string{"Diversos"},
		},
		{
			name:        "misc category at limit passes",
			tx:          tx("TX3", "Kevin Malone", "Party favors", 5.00, "Diversos"),
			wantReasons: nil,
		},
		{
			name:        "banned venue and non-approved meal together",
			tx:          tx("TX4", "Michael Scott", "Hooters - client dinner", 300, "Refeição"),
			wantReasons: []string{"Hooters", "non-approved venue"},
		},
		{
			name:        "convertible car",
			tx:          tx("TX5", "Michael Scott", "Chrysler Sebring convertible - lease payment", 450, "Transporte"),
			wantReasons: []string{"Convertible car"},
		},
		{
			name:        "illegal entertainment keyword",
			tx:          tx("TX6", "Michael Scott", "Magic show tickets with handcuff escape", 80, "Entretenimento"),
			wantReasons: []string{"illegal entertainment"},
		},
		{
			name:        "first keyword in group wins once",
			tx:          tx("TX7", "Dwight Schrute", "Katana and ninja star display case", 200, "Decoração"),
			wantReasons: []string{"weapons and surveillance gear"},
		},
		{
			name:        "conflict of interest vendor",
			tx:          tx("TX8", "Ryan Howard", "WUPHF.com - marketing retainer", 150, "Serviços"),
			wantReasons: []string{"CONFLITO DE INTERESSES"},
		},
		{
			name:        "approved meal venue passes",
			tx:          tx("TX9", "Jim Halpert", "Chili's - team lunch", 60, "Refeição"),
			wantReasons: nil,
		},
		{
			name:        "poor richards needs lunch check",
			tx:          tx("TX10", "Meredith Palmer", "Poor Richard's Pub - happy hour", 45, "Refeição"),
			wantReasons: []string{"verify this was lunch"},
		},
		{
			name:        "meal category spelled differently still checked",
			tx:          tx("TX11", "Andy Bernard", "Benihana - client meal", 120, "Meal"),
			wantReasons: []string{"non-approved venue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := Evaluate(tt.tx)

			if len(reasons) != len(tt.wantReasons) {
				t.Fatalf("Evaluate() = %v, want %d reasons matching %v", reasons, len(tt.wantReasons), tt.wantReasons)
			}
			for i, want := range tt.wantReasons {
				if !strings.Contains(reasons[i], want) {
					t.Errorf("reason %d = %q, want it to contain %q", i, reasons[i], want)
				}
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	sample := tx("TX4", "Michael Scott", "Hooters - client dinner", 300, "Refeição")

	first := Evaluate(sample)
	second := Evaluate(sample)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate() not idempotent: %v vs %v", first, second)
	}
}

func TestEvaluateAll(t *testing.T) {
	txs := []domain.Transaction{
		tx("TX1", "Jim Halpert", "Staples - printer paper", 30, "Material"),
		tx("TX2", "Kevin Malone", "Party favors", 9.99, "Diversos"),
		tx("TX3", "Michael Scott", "Hooters - client dinner", 300, "Refeição"),
	}

	violations := EvaluateAll(txs)

	if len(violations) != 2 {
		t.Fatalf("EvaluateAll() = %d violations, want 2", len(violations))
	}
	if violations[0].TransactionID != "TX2" || violations[1].TransactionID != "TX3" {
		t.Errorf("unexpected violation order: %s, %s", violations[0].TransactionID, violations[1].TransactionID)
	}
	for _, v := range violations {
		if v.Kind != domain.KindDirect {
			t.Errorf("Kind = %q, want %q", v.Kind, domain.KindDirect)
		}
	}
	// TX3 trips both the banned-venue and the meal checks.
	if len(violations[1].Reasons) != 2 {
		t.Errorf("TX3 reasons = %v, want 2 entries", violations[1].Reasons)
	}
}
