package entity

import "encoding/json"

// TypeHint is a coarse tag attached to a classification, independent of the
// budget category assigned later.
type TypeHint string

// Type hints produced by the rule classifier
const (
	TypeHintNone     TypeHint = ""
	TypeHintMerchant TypeHint = "merchant"
	TypeHintFee      TypeHint = "fee"
	TypeHintATM      TypeHint = "atm"
	TypeHintSalary   TypeHint = "salary"
	TypeHintRefund   TypeHint = "refund"
	TypeHintTransfer TypeHint = "transfer"
)

// ClassificationResult is the outcome of the rule classifier.
// An empty Simplified always comes with zero Confidence and vice versa.
type ClassificationResult struct {
	Simplified  string   `json:"simplified"`
	Confidence  float64  `json:"confidence"`
	TypeHint    TypeHint `json:"type_hint"`
	MatchedRule string   `json:"matched_rule"`
}

// Matched reports whether a rule fired.
func (r ClassificationResult) Matched() bool {
	return r.Simplified != "" && r.Confidence > 0
}

// MarshalJSON renders an empty label, type hint or rule as null.
func (r ClassificationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Simplified  *string   `json:"simplified"`
		Confidence  float64   `json:"confidence"`
		TypeHint    *TypeHint `json:"type_hint"`
		MatchedRule *string   `json:"matched_rule"`
	}{
		Simplified:  nullIfEmpty(r.Simplified),
		Confidence:  r.Confidence,
		TypeHint:    nullIfEmpty(r.TypeHint),
		MatchedRule: nullIfEmpty(r.MatchedRule),
	})
}

func nullIfEmpty[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}

// NoMatch is the result returned when no rule applies.
func NoMatch() ClassificationResult {
	return ClassificationResult{}
}

// Categorization sources
const (
	SourcePreference = "preference"
	SourceRule       = "rule"
	SourceAI         = "ai"
	SourceNone       = "none"
)

// Categorization is a fully processed transaction description.
type Categorization struct {
	Raw       string               `json:"raw"`
	Sanitized string               `json:"sanitized"`
	Tokens    []string             `json:"tokens"`
	Result    ClassificationResult `json:"result"`
	Category  string               `json:"category,omitempty"`
	Source    string               `json:"source"`
}

// AICategorization is what the AI fallback classifier returns.
type AICategorization struct {
	Simplified string   `json:"simplified"`
	Category   string   `json:"category"`
	TypeHint   TypeHint `json:"type_hint"`
	Confidence float64  `json:"confidence"`
}
