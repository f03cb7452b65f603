package entity

import (
	"encoding/json"
	"time"
)

// DefaultReceiptCurrency is used when a receipt does not print a currency code.
const DefaultReceiptCurrency = "EUR"

// ReceiptDocument is the structured form of one retailer receipt.
// ReceiptDateISO, ReceiptDate and ReceiptTime render the same instant.
type ReceiptDocument struct {
	StoreName       string            `json:"store_name"`
	ReceiptDateISO  string            `json:"receipt_date_iso"`
	ReceiptDate     string            `json:"receipt_date"`
	ReceiptTime     string            `json:"receipt_time"`
	Currency        string            `json:"currency"`
	TotalAmount     float64           `json:"total_amount"`
	TaxesTotalCuota float64           `json:"taxes_total_cuota"`
	Taxes           []TaxLine         `json:"taxes"`
	Items           []ReceiptLineItem `json:"items"`
	RawText         string            `json:"raw_text"`
}

// MarshalJSON renders a missing store name as null.
func (d ReceiptDocument) MarshalJSON() ([]byte, error) {
	type plain ReceiptDocument
	return json.Marshal(struct {
		plain
		StoreName *string `json:"store_name"`
	}{plain(d), nullIfEmpty(d.StoreName)})
}

// ReceiptLineItem is one purchased article.
// Category is always nil when produced by a parser.
type ReceiptLineItem struct {
	Description      string   `json:"description"`
	Quantity         int      `json:"quantity"`
	PricePerUnit     float64  `json:"price_per_unit"`
	TotalPrice       float64  `json:"total_price"`
	UnitPriceDerived bool     `json:"unit_price_derived"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	PricePerKg       *float64 `json:"price_per_kg,omitempty"`
	Category         *string  `json:"category"`
}

// TaxLine is one row of a VAT breakdown table.
type TaxLine struct {
	RatePercent float64 `json:"rate_percent"`
	Base        float64 `json:"base"`
	Cuota       float64 `json:"cuota"`
}

// StoredReceipt is a receipt persisted together with how it was obtained.
type StoredReceipt struct {
	ID        int64           `json:"id"`
	Parser    string          `json:"parser"`
	Document  ReceiptDocument `json:"document"`
	Warnings  []string        `json:"warnings"`
	CreatedAt time.Time       `json:"created_at"`
}
