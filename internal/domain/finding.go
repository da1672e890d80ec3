package domain

import "time"

// ViolationKind distinguishes how a rule-based violation was detected.
type ViolationKind string

const (
	// KindDirect marks violations triggered by per-transaction policy checks.
	KindDirect ViolationKind = "VIOLACAO_DIRETA"
	// KindSmurfing marks violations triggered only by the split-payment detector.
	KindSmurfing ViolationKind = "SMURFING"
)

// Violation is a rule-based finding. There is at most one Violation per
// transaction ID; every rule that fired contributes one entry to Reasons.
type Violation struct {
	TransactionID string
	Date          time.Time
	Employee      string
	Role          string
	Description   string
	Amount        float64
	Category      string
	Vendor        string
	Reasons       []string
	Kind          ViolationKind
}

// ContextualFinding is an LLM-confirmed fraud finding produced from a
// correlated (email, transaction) pair. It exists only when the model
// asserted fraud at or above the acceptance threshold.
type ContextualFinding struct {
	TransactionID   string
	Date            time.Time
	Employee        string
	Role            string
	Description     string
	Amount          float64
	Category        string
	Vendor          string
	FraudType       string
	Confidence      int // 0-100
	Evidence        string
	Justification   string
	EmailSender     string
	EmailDate       time.Time
	CrossMatchScore int
}

// FindingOrigin tags which detector a consolidated finding came from.
type FindingOrigin string

const (
	OriginDirectViolation FindingOrigin = "VIOLACAO_DIRETA"
	OriginContextualFraud FindingOrigin = "FRAUDE_CONTEXTUAL"
)

// Finding is one row of the consolidated report: a violation or a contextual
// finding normalized to a common shape and tagged with its origin.
type Finding struct {
	TransactionID string
	Date          time.Time
	Employee      string
	Role          string
	Description   string
	Amount        float64
	Category      string
	Vendor        string
	Reasons       string // " | "-joined reason strings or the fraud type
	Origin        FindingOrigin
	Confidence    int // 0 for rule-based findings
}
