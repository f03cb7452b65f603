package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Categorizer implements port.AICategorizer with a chat completion
type Categorizer struct {
	client *Client
}

// NewCategorizer creates a new AI categorizer
func NewCategorizer(client *Client) *Categorizer {
	return &Categorizer{client: client}
}

type categorizationData struct {
	Description string
	Tokens      string
}

// Categorize asks the model for a label of a sanitized description
func (c *Categorizer) Categorize(ctx context.Context, sanitized string, tokens []string) (*entity.AICategorization, error) {
	prompt := c.client.prompts.Categorization
	user, err := renderTemplate(prompt.UserTemplate, categorizationData{
		Description: sanitized,
		Tokens:      strings.Join(tokens, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render categorization prompt: %w", err)
	}

	var result entity.AICategorization
	err = c.client.completeJSON(ctx, openai.ChatCompletionRequest{
		Model:       c.client.model,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}, &result)
	if err != nil {
		return nil, err
	}

	result.Simplified = strings.TrimSpace(result.Simplified)
	result.Category = strings.ToLower(strings.TrimSpace(result.Category))
	switch result.TypeHint {
	case entity.TypeHintMerchant, entity.TypeHintFee, entity.TypeHintATM,
		entity.TypeHintSalary, entity.TypeHintRefund, entity.TypeHintTransfer:
	default:
		result.TypeHint = entity.TypeHintNone
	}

	c.client.logger.Info("AI categorization completed",
		zap.String("simplified", result.Simplified),
		zap.String("category", result.Category),
		zap.Float64("confidence", result.Confidence))

	return &result, nil
}

// Verify interface compliance
var _ port.AICategorizer = (*Categorizer)(nil)
