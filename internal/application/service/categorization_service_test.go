package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
)

func TestCategorizationService_Categorize(t *testing.T) {
	ctx := context.Background()

	t.Run("rule match skips the AI fallback", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("GetByKey", mock.Anything, "ZARA").Return(nil, port.ErrNotFound)
		ai := new(MockAICategorizer)

		svc := NewCategorizationService(nil, prefs, ai, nopLogger{})
		got, err := svc.Categorize(ctx, "COMPRA ZARA CARD*1234")
		require.NoError(t, err)

		assert.Equal(t, "COMPRA ZARA CARD", got.Sanitized)
		assert.Equal(t, []string{"ZARA"}, got.Tokens)
		assert.Equal(t, "Zara", got.Result.Simplified)
		assert.Equal(t, entity.SourceRule, got.Source)
		ai.AssertNotCalled(t, "Categorize", mock.Anything, mock.Anything, mock.Anything)
		prefs.AssertExpectations(t)
	})

	t.Run("preference overrides the rule", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("GetByKey", mock.Anything, "ZARA").
			Return(&entity.Preference{DescriptionKey: "ZARA", Label: "Clothes", Category: "shopping"}, nil)

		svc := NewCategorizationService(nil, prefs, nil, nopLogger{})
		got, err := svc.Categorize(ctx, "COMPRA ZARA CARD*1234")
		require.NoError(t, err)

		assert.Equal(t, "Clothes", got.Result.Simplified)
		assert.Equal(t, PreferenceConfidence, got.Result.Confidence)
		assert.Equal(t, entity.TypeHintMerchant, got.Result.TypeHint)
		assert.Equal(t, "shopping", got.Category)
		assert.Equal(t, entity.SourcePreference, got.Source)
	})

	t.Run("AI fallback when no rule matches", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("GetByKey", mock.Anything, "XYZZY SHOP").Return(nil, port.ErrNotFound)
		ai := new(MockAICategorizer)
		ai.On("Categorize", mock.Anything, "XYZZY SHOP 42", []string{"XYZZY", "SHOP"}).
			Return(&entity.AICategorization{Simplified: " Xyzzy ", Category: "shopping", TypeHint: entity.TypeHintMerchant}, nil)

		svc := NewCategorizationService(nil, prefs, ai, nopLogger{})
		got, err := svc.Categorize(ctx, "XYZZY SHOP 42")
		require.NoError(t, err)

		assert.Equal(t, "Xyzzy", got.Result.Simplified)
		assert.InDelta(t, defaultAIConfidence, got.Result.Confidence, 1e-9)
		assert.Equal(t, entity.SourceAI, got.Result.MatchedRule)
		assert.Equal(t, "shopping", got.Category)
		assert.Equal(t, entity.SourceAI, got.Source)
		ai.AssertExpectations(t)
	})

	t.Run("AI failure leaves the description unclassified", func(t *testing.T) {
		ai := new(MockAICategorizer)
		ai.On("Categorize", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

		svc := NewCategorizationService(nil, nil, ai, nopLogger{})
		got, err := svc.Categorize(ctx, "XYZZY SHOP 42")
		require.NoError(t, err)

		assert.Equal(t, entity.NoMatch(), got.Result)
		assert.Equal(t, entity.SourceNone, got.Source)
	})

	t.Run("preference lookup errors fall through to rules", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("GetByKey", mock.Anything, "SPOTIFY").Return(nil, errors.New("database is locked"))

		svc := NewCategorizationService(nil, prefs, nil, nopLogger{})
		got, err := svc.Categorize(ctx, "COMISION SPOTIFY")
		require.NoError(t, err)
		assert.Equal(t, "Spotify", got.Result.Simplified)
		assert.Equal(t, entity.SourceRule, got.Source)
	})

	t.Run("blank input", func(t *testing.T) {
		svc := NewCategorizationService(nil, nil, nil, nopLogger{})
		_, err := svc.Categorize(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestCategorizationService_SetPreference(t *testing.T) {
	ctx := context.Background()

	t.Run("stores preference under the merchant key", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("Upsert", mock.Anything, mock.MatchedBy(func(p *entity.Preference) bool {
			return p.DescriptionKey == "ZARA" && p.Label == "Clothes" && p.Category == "shopping"
		})).Return(nil)

		svc := NewCategorizationService(nil, prefs, nil, nopLogger{})
		pref, err := svc.SetPreference(ctx, "compra zara tarj 5555", " Clothes ", "shopping")
		require.NoError(t, err)
		assert.Equal(t, "ZARA", pref.DescriptionKey)
		assert.False(t, pref.UpdatedAt.IsZero())
		prefs.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewCategorizationService(nil, new(MockPreferenceRepo), nil, nopLogger{})

		_, err := svc.SetPreference(ctx, "ZARA", "", "")
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = svc.SetPreference(ctx, "1234 **** 99", "Label", "")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("repository error", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		prefs.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		svc := NewCategorizationService(nil, prefs, nil, nopLogger{})
		_, err := svc.SetPreference(ctx, "ZARA", "Clothes", "")
		assert.Error(t, err)
	})
}
