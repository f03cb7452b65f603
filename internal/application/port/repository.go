package port

import (
	"context"
	"errors"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ReceiptRepository persists parsed receipts together with their line items
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.StoredReceipt) error
	GetByID(ctx context.Context, id int64) (*entity.StoredReceipt, error)
	List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error)
}

// TransactionRepository persists categorized statement rows
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	ListByBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error)
}

// PreferenceRepository stores user overrides keyed by description key
type PreferenceRepository interface {
	// Upsert inserts or replaces the preference for pref.DescriptionKey
	Upsert(ctx context.Context, pref *entity.Preference) error

	// GetByKey returns ErrNotFound when no preference exists
	GetByKey(ctx context.Context, key string) (*entity.Preference, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
