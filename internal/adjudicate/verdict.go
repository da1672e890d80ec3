package adjudicate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// verdict is the model's answer for one pair, matching the JSON contract in
// the system prompt.
type verdict struct {
	IsFraud       bool   `json:"is_fraud"`
	FraudType     string `json:"fraud_type"`
	Confidence    int    `json:"confidence"`
	Evidence      string `json:"evidence"`
	Justification string `json:"justification"`
}

// parseVerdict decodes and validates a raw model response. Markdown fences
// are stripped first in case the model ignored the no-fences instruction.
func parseVerdict(raw string) (verdict, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return verdict{}, fmt.Errorf("parseVerdict: empty response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return verdict{}, fmt.Errorf("parseVerdict: unmarshal JSON: %w", err)
	}

	if v.Confidence < 0 || v.Confidence > 100 {
		return verdict{}, fmt.Errorf("parseVerdict: confidence %d out of range", v.Confidence)
	}
	if v.IsFraud && strings.TrimSpace(v.FraudType) == "" {
		return verdict{}, fmt.Errorf("parseVerdict: fraud asserted without a fraud_type")
	}

	return v, nil
}

// cleanModelJSON strips Markdown code fences and any junk around the JSON
// object if the model ignored instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
