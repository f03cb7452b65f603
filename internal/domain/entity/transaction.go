package entity

import (
	"encoding/json"
	"time"
)

// Transaction is one imported bank statement row after categorization.
type Transaction struct {
	ID                   int64      `json:"id"`
	BatchID              string     `json:"batch_id"`
	RowNumber            int        `json:"row_number"`
	BookedOn             *time.Time `json:"booked_on,omitempty"`
	RawDescription       string     `json:"raw_description"`
	SanitizedDescription string     `json:"sanitized_description"`
	Amount               float64    `json:"amount"`
	Simplified           string     `json:"simplified"`
	Confidence           float64    `json:"confidence"`
	TypeHint             TypeHint   `json:"type_hint"`
	MatchedRule          string     `json:"matched_rule"`
	Category             string     `json:"category"`
	Source               string     `json:"source"`
	Error                string     `json:"error,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// MarshalJSON renders the classification fields of an unclassified row as
// null.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Simplified  *string   `json:"simplified"`
		TypeHint    *TypeHint `json:"type_hint"`
		MatchedRule *string   `json:"matched_rule"`
	}{plain(t), nullIfEmpty(t.Simplified), nullIfEmpty(t.TypeHint), nullIfEmpty(t.MatchedRule)})
}

// Preference is a user-confirmed label for a description. Preferences take
// precedence over the rule classifier on later imports.
type Preference struct {
	DescriptionKey string    `json:"description_key"`
	Label          string    `json:"label"`
	Category       string    `json:"category"`
	UpdatedAt      time.Time `json:"updated_at"`
}
