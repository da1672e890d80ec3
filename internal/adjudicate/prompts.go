package adjudicate

import (
	"fmt"
	"strings"

	"github.com/rmartins/expense-audit/internal/correlate"
)

// systemPrompt fixes the fraud taxonomy and the structured-JSON response
// contract. The model must answer with a single JSON object and nothing
// else.
const systemPrompt = `You are an auditor specialized in corporate fraud detection.
Analyze the email and the transaction provided and determine whether there is evidence of fraud.

Fraud types to consider:
1. COLLUSION: employees coordinating misappropriation of funds
2. SMURFING: intentionally splitting purchases to avoid approval thresholds
3. CONFLICT OF INTEREST: using company funds for side businesses
4. MASKING: booking expenses under false descriptions
5. UNAUTHORIZED APPROVAL: processing payments without proper authorization

Respond ONLY in this JSON format:
{
    "is_fraud": true/false,
    "fraud_type": "one of the types above",
    "confidence": 0-100,
    "evidence": "specific evidence from the email",
    "justification": "one or two line justification"
}

Return ONLY valid raw JSON. Do NOT wrap the response in code fences.`

// maxBodyChars caps how much of the email body is sent to the model.
const maxBodyChars = 500

// buildPairPrompt renders one correlated (email, transaction) pair as the
// human prompt for adjudication.
func buildPairPrompt(pair correlate.Pair) string {
	body := pair.Email.Email.Body
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars] + "..."
	}

	return fmt.Sprintf(`EMAIL:
From: %s
To: %s
Date: %s
Subject: %s
Message: %s

TRANSACTION:
ID: %s
Employee: %s
Role: %s
Date: %s
Description: %s
Amount: US$ %.2f
Category: %s

CROSS-MATCH SIGNALS: %s

Analyze whether this transaction is fraudulent based on the email context.`,
		pair.Email.Email.Sender,
		pair.Email.Email.Recipient,
		pair.Email.Email.Date.Format("2006-01-02 15:04"),
		pair.Email.Email.Subject,
		body,
		pair.Tx.ID,
		pair.Tx.Employee,
		pair.Tx.Role,
		pair.Tx.Date.Format("2006-01-02"),
		pair.Tx.Description,
		pair.Tx.Amount,
		pair.Tx.Category,
		strings.Join(pair.Reasons, ", "),
	)
}
