package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// PreferenceRepository implements port.PreferenceRepository
type PreferenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *sql.DB, logger *zap.Logger) port.PreferenceRepository {
	return &PreferenceRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces the preference for pref.DescriptionKey
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *entity.Preference) error {
	query := `
		INSERT INTO preferences (description_key, label, category, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(description_key) DO UPDATE SET
			label = excluded.label,
			category = excluded.category,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		pref.DescriptionKey,
		pref.Label,
		pref.Category,
	); err != nil {
		r.logger.Error("Failed to upsert preference",
			zap.String("key", pref.DescriptionKey),
			zap.Error(err))
		return fmt.Errorf("failed to upsert preference: %w", err)
	}

	return nil
}

// GetByKey returns ErrNotFound when no preference exists
func (r *PreferenceRepository) GetByKey(ctx context.Context, key string) (*entity.Preference, error) {
	query := `
		SELECT description_key, label, category, updated_at
		FROM preferences
		WHERE description_key = ?
	`

	var pref entity.Preference
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, key).Scan(
		&pref.DescriptionKey,
		&pref.Label,
		&pref.Category,
		&pref.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get preference",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	return &pref, nil
}

// Verify interface compliance
var _ port.PreferenceRepository = (*PreferenceRepository)(nil)
