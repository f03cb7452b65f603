package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptSpec is one chat prompt with its sampling parameters
type PromptSpec struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used by the categorizer and receipt extractor
type PromptConfig struct {
	Categorization    PromptSpec `yaml:"categorization"`
	ReceiptExtraction PromptSpec `yaml:"receipt_extraction"`
	ReceiptVision     PromptSpec `yaml:"receipt_vision"`
}

const receiptSchema = `{
  "store_name": string,
  "receipt_date_iso": "YYYY-MM-DDTHH:MM:SS" or "",
  "receipt_date": "DD/MM/YYYY" or "",
  "receipt_time": "HH:MM" or "",
  "currency": ISO 4217 code,
  "total_amount": number,
  "taxes_total_cuota": number,
  "taxes": [{"rate_percent": number, "base": number, "cuota": number}],
  "items": [{"description": string, "quantity": integer, "price_per_unit": number,
             "total_price": number, "weight_kg": number or null, "price_per_kg": number or null}]
}`

// DefaultPrompts returns the built-in prompts
func DefaultPrompts() *PromptConfig {
	return &PromptConfig{
		Categorization: PromptSpec{
			Temperature: 0.1,
			MaxTokens:   200,
			System: "You label Spanish and English bank statement descriptions. " +
				"Answer with a JSON object only.",
			UserTemplate: `Description: {{.Description}}
Merchant tokens: {{.Tokens}}

Return {"simplified": short human label such as a merchant or counterparty name,
"category": one of groceries, restaurants, transport, shopping, subscriptions, utilities,
travel, health, housing, income, transfers, fees, cash, other,
"type_hint": one of merchant, fee, atm, salary, refund, transfer or "",
"confidence": number between 0 and 1}.
Use an empty simplified value when the description is not recognisable.`,
		},
		ReceiptExtraction: PromptSpec{
			Temperature:  0,
			MaxTokens:    4096,
			System:       "You turn printed retail receipts into structured JSON. Answer with a JSON object only.",
			UserTemplate: "Extract this receipt using the schema\n" + receiptSchema + "\n\nReceipt text:\n{{.Text}}",
		},
		ReceiptVision: PromptSpec{
			Temperature:  0,
			MaxTokens:    4096,
			System:       "You read photographed retail receipts and return structured JSON. Answer with a JSON object only.",
			UserTemplate: "Extract the receipt in the image using the schema\n" + receiptSchema,
		},
	}
}

// LoadPrompts reads prompts from a YAML file. Prompts missing from the
// file keep their built-in values; an empty path returns the defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts := DefaultPrompts()
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var loaded PromptConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	merge(&prompts.Categorization, loaded.Categorization)
	merge(&prompts.ReceiptExtraction, loaded.ReceiptExtraction)
	merge(&prompts.ReceiptVision, loaded.ReceiptVision)
	return prompts, nil
}

func merge(dst *PromptSpec, src PromptSpec) {
	if src.System != "" {
		dst.System = src.System
	}
	if src.UserTemplate != "" {
		dst.UserTemplate = src.UserTemplate
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
