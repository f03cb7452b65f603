package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

// fakeOpenAI answers every chat completion with content and records the requests
func fakeOpenAI(t *testing.T, content string) (*Client, *[]openai.ChatCompletionRequest) {
	t.Helper()
	var requests []openai.ChatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-test",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil, zap.NewNop())
	return client, &requests
}

func TestCategorizer_Categorize(t *testing.T) {
	client, requests := fakeOpenAI(t, `{"simplified":"Panadería Pepe","category":" Groceries ","type_hint":"merchant","confidence":0.7}`)

	got, err := NewCategorizer(client).Categorize(context.Background(), "COMPRA PANADERIA PEPE", []string{"PANADERIA", "PEPE"})
	require.NoError(t, err)
	assert.Equal(t, "Panadería Pepe", got.Simplified)
	assert.Equal(t, "groceries", got.Category)
	assert.Equal(t, entity.TypeHintMerchant, got.TypeHint)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[1].Content, "COMPRA PANADERIA PEPE")
	assert.Contains(t, req.Messages[1].Content, "PANADERIA, PEPE")
}

func TestCategorizer_UnknownTypeHintDropped(t *testing.T) {
	client, _ := fakeOpenAI(t, "Sure:\n```json\n{\"simplified\":\"Gym\",\"type_hint\":\"subscription\",\"confidence\":0.6}\n```")

	got, err := NewCategorizer(client).Categorize(context.Background(), "CUOTA GYM", nil)
	require.NoError(t, err)
	assert.Equal(t, "Gym", got.Simplified)
	assert.Equal(t, entity.TypeHintNone, got.TypeHint)
}

func TestCategorizer_InvalidAnswer(t *testing.T) {
	client, _ := fakeOpenAI(t, "no idea")

	_, err := NewCategorizer(client).Categorize(context.Background(), "XYZ", nil)
	assert.Error(t, err)
}

func TestReceiptExtractor_ExtractFromText(t *testing.T) {
	answer := `{"store_name":" LIDL ","currency":"","total_amount":3.5,
		"items":[{"description":"PAN","quantity":2,"total_price":2.0,"category":"bakery"},
		         {"description":"AGUA","quantity":0,"price_per_unit":1.5,"total_price":1.5}]}`
	client, _ := fakeOpenAI(t, answer)

	doc, err := NewReceiptExtractor(client).ExtractFromText(context.Background(), "LIDL\nPAN 2,00\nAGUA 1,50")
	require.NoError(t, err)
	assert.Equal(t, "LIDL", doc.StoreName)
	assert.Equal(t, "EUR", doc.Currency)
	assert.NotNil(t, doc.Taxes)
	require.Len(t, doc.Items, 2)
	assert.Nil(t, doc.Items[0].Category)
	assert.InDelta(t, 1.0, doc.Items[0].PricePerUnit, 1e-9)
	assert.True(t, doc.Items[0].UnitPriceDerived)
	assert.Equal(t, 1, doc.Items[1].Quantity)
	assert.False(t, doc.Items[1].UnitPriceDerived)
	assert.Equal(t, "LIDL\nPAN 2,00\nAGUA 1,50", doc.RawText)
}

func TestReceiptExtractor_EmptyReceipt(t *testing.T) {
	client, _ := fakeOpenAI(t, `{"store_name":"","items":[]}`)

	_, err := NewReceiptExtractor(client).ExtractFromText(context.Background(), "hello")
	assert.Error(t, err)
}

func TestReceiptExtractor_ExtractFromImage(t *testing.T) {
	client, requests := fakeOpenAI(t, `{"store_name":"DIA","total_amount":9.99,"items":[]}`)

	doc, err := NewReceiptExtractor(client).ExtractFromImage(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "DIA", doc.StoreName)

	req := (*requests)[0]
	assert.Equal(t, openai.GPT4o, req.Model)
	parts := req.Messages[1].MultiContent
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,/9j/"))
}

func TestLoadPrompts(t *testing.T) {
	defaults, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), defaults)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categorization:\n  system: custom system\n  temperature: 0.4\n"), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "custom system", prompts.Categorization.System)
	assert.InDelta(t, 0.4, prompts.Categorization.Temperature, 1e-6)
	assert.Equal(t, DefaultPrompts().Categorization.UserTemplate, prompts.Categorization.UserTemplate)
	assert.Equal(t, DefaultPrompts().ReceiptExtraction, prompts.ReceiptExtraction)

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPrompts_ShippedFile(t *testing.T) {
	prompts, err := LoadPrompts(filepath.Join("..", "..", "..", "..", "configs", "prompts.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), prompts)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
		{"brace in string", `x {"a":"}"} y`, `{"a":"}"}`},
		{"none", "nothing here", ""},
		{"unbalanced", `{"a":1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}
