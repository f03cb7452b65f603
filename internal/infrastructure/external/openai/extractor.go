package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ReceiptExtractor implements port.ReceiptExtractor for receipts that no
// retailer parser recognises
type ReceiptExtractor struct {
	client *Client
}

// NewReceiptExtractor creates a new AI receipt extractor
func NewReceiptExtractor(client *Client) *ReceiptExtractor {
	return &ReceiptExtractor{client: client}
}

// ExtractFromText extracts a receipt from its printed text
func (e *ReceiptExtractor) ExtractFromText(ctx context.Context, text string) (*entity.ReceiptDocument, error) {
	prompt := e.client.prompts.ReceiptExtraction
	user, err := renderTemplate(prompt.UserTemplate, struct{ Text string }{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	var doc entity.ReceiptDocument
	err = e.client.completeJSON(ctx, openai.ChatCompletionRequest{
		Model:       e.client.model,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}, &doc)
	if err != nil {
		return nil, err
	}

	return e.finish(&doc, text)
}

// ExtractFromImage extracts a receipt from a photo using the vision model
func (e *ReceiptExtractor) ExtractFromImage(ctx context.Context, data []byte, mimeType string) (*entity.ReceiptDocument, error) {
	e.client.logger.Info("Extracting receipt with Vision API", zap.String("mime_type", mimeType))

	prompt := e.client.prompts.ReceiptVision
	var doc entity.ReceiptDocument
	err := e.client.completeJSON(ctx, openai.ChatCompletionRequest{
		Model:       e.client.visionModel,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt.UserTemplate,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}, &doc)
	if err != nil {
		return nil, err
	}

	return e.finish(&doc, "")
}

// finish normalizes a model answer into the shape the parsers produce
func (e *ReceiptExtractor) finish(doc *entity.ReceiptDocument, rawText string) (*entity.ReceiptDocument, error) {
	if len(doc.Items) == 0 && doc.TotalAmount == 0 {
		return nil, fmt.Errorf("model returned an empty receipt")
	}

	doc.StoreName = strings.TrimSpace(doc.StoreName)
	doc.Currency = strings.ToUpper(strings.TrimSpace(doc.Currency))
	if doc.Currency == "" {
		doc.Currency = entity.DefaultReceiptCurrency
	}
	if doc.Taxes == nil {
		doc.Taxes = []entity.TaxLine{}
	}
	if doc.Items == nil {
		doc.Items = []entity.ReceiptLineItem{}
	}
	for i := range doc.Items {
		item := &doc.Items[i]
		item.Category = nil
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if item.PricePerUnit == 0 && item.TotalPrice != 0 {
			item.PricePerUnit = utils.UnitPrice(item.TotalPrice, item.Quantity)
			item.UnitPriceDerived = true
		}
	}
	doc.RawText = rawText

	e.client.logger.Info("AI receipt extraction completed",
		zap.String("store", doc.StoreName),
		zap.Int("items", len(doc.Items)),
		zap.Float64("total", doc.TotalAmount))

	return doc, nil
}

// Verify interface compliance
var _ port.ReceiptExtractor = (*ReceiptExtractor)(nil)
