package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/description"
	"github.com/garyjia/spendlens/internal/domain/entity"
)

// PreferenceConfidence is reported for labels the user set explicitly.
const PreferenceConfidence = 1.0

// defaultAIConfidence is used when the AI fallback omits a confidence.
const defaultAIConfidence = 0.5

// CategorizationService turns raw statement descriptions into labels
type CategorizationService interface {
	// Categorize sanitizes raw and resolves a label from, in order, user
	// preferences, the rule classifier and the AI fallback.
	Categorize(ctx context.Context, raw string) (*entity.Categorization, error)

	// SetPreference stores a user label for every description sharing the
	// merchant tokens of description.
	SetPreference(ctx context.Context, description, label, category string) (*entity.Preference, error)
}

type categorizationServiceImpl struct {
	classifier *description.Classifier
	prefRepo   port.PreferenceRepository
	ai         port.AICategorizer
	logger     Logger
}

// NewCategorizationService creates a new CategorizationService.
// prefRepo and ai may be nil.
func NewCategorizationService(
	classifier *description.Classifier,
	prefRepo port.PreferenceRepository,
	ai port.AICategorizer,
	logger Logger,
) CategorizationService {
	if classifier == nil {
		classifier = description.DefaultClassifier()
	}
	return &categorizationServiceImpl{
		classifier: classifier,
		prefRepo:   prefRepo,
		ai:         ai,
		logger:     logger,
	}
}

// Categorize implements CategorizationService
func (s *categorizationServiceImpl) Categorize(ctx context.Context, raw string) (*entity.Categorization, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	sanitized := description.SanitizeDescription(raw)
	tokens := description.ExtractMerchantTokens(sanitized)
	out := &entity.Categorization{
		Raw:       raw,
		Sanitized: sanitized,
		Tokens:    tokens,
		Source:    entity.SourceNone,
	}

	rule := s.classifier.Simplify(sanitized)

	if pref := s.lookupPreference(ctx, strings.Join(tokens, " ")); pref != nil {
		out.Result = entity.ClassificationResult{
			Simplified:  pref.Label,
			Confidence:  PreferenceConfidence,
			TypeHint:    rule.TypeHint,
			MatchedRule: entity.SourcePreference,
		}
		out.Category = pref.Category
		out.Source = entity.SourcePreference
		return out, nil
	}

	if rule.Matched() {
		out.Result = rule
		out.Source = entity.SourceRule
		return out, nil
	}

	if s.ai == nil {
		return out, nil
	}

	aiRes, err := s.ai.Categorize(ctx, sanitized, tokens)
	if err != nil {
		// The AI fallback is best effort; the description stays unclassified.
		s.logger.Error("AI categorization failed", "error", err, "description", sanitized)
		return out, nil
	}
	if aiRes == nil || strings.TrimSpace(aiRes.Simplified) == "" {
		return out, nil
	}

	confidence := aiRes.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = defaultAIConfidence
	}
	out.Result = entity.ClassificationResult{
		Simplified:  strings.TrimSpace(aiRes.Simplified),
		Confidence:  confidence,
		TypeHint:    aiRes.TypeHint,
		MatchedRule: entity.SourceAI,
	}
	out.Category = aiRes.Category
	out.Source = entity.SourceAI
	return out, nil
}

func (s *categorizationServiceImpl) lookupPreference(ctx context.Context, key string) *entity.Preference {
	if s.prefRepo == nil || key == "" {
		return nil
	}
	pref, err := s.prefRepo.GetByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Error("Failed to load preference", "error", err, "key", key)
		}
		return nil
	}
	return pref
}

// SetPreference implements CategorizationService
func (s *categorizationServiceImpl) SetPreference(ctx context.Context, desc, label, category string) (*entity.Preference, error) {
	if s.prefRepo == nil {
		return nil, fmt.Errorf("preferences are not configured")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrEmptyInput)
	}
	key := description.DescriptionKey(desc)
	if key == "" {
		return nil, fmt.Errorf("%w: description has no merchant tokens", ErrEmptyInput)
	}

	pref := &entity.Preference{
		DescriptionKey: key,
		Label:          label,
		Category:       strings.TrimSpace(category),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.prefRepo.Upsert(ctx, pref); err != nil {
		s.logger.Error("Failed to save preference", "error", err, "key", key)
		return nil, fmt.Errorf("save preference: %w", err)
	}

	s.logger.Info("Preference saved", "key", key, "label", label)
	return pref, nil
}
