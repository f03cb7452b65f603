package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const bookedOnLayout = "2006-01-02"

// TransactionRepository implements port.TransactionRepository
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores one categorized statement row
func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			batch_id, row_number, booked_on, raw_description, sanitized_description,
			amount, simplified, confidence, type_hint, matched_rule, category, source, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var bookedOn interface{}
	if tx.BookedOn != nil {
		bookedOn = tx.BookedOn.Format(bookedOnLayout)
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		tx.BatchID,
		tx.RowNumber,
		bookedOn,
		tx.RawDescription,
		tx.SanitizedDescription,
		tx.Amount,
		nullString(tx.Simplified),
		tx.Confidence,
		nullString(string(tx.TypeHint)),
		nullString(tx.MatchedRule),
		nullString(tx.Category),
		tx.Source,
		nullString(tx.Error),
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("batch_id", tx.BatchID),
			zap.Int("row", tx.RowNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	tx.ID = id
	return nil
}

// ListByBatch returns the rows of one import in statement order
func (r *TransactionRepository) ListByBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error) {
	query := `
		SELECT id, batch_id, row_number, booked_on, raw_description, sanitized_description,
			amount, simplified, confidence, type_hint, matched_rule, category, source, error, created_at
		FROM transactions
		WHERE batch_id = ?
		ORDER BY row_number, id
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to list transactions",
			zap.String("batch_id", batchID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []*entity.Transaction{}
	for rows.Next() {
		var (
			tx       entity.Transaction
			bookedOn sql.NullString
			rowErr   sql.NullString
		)
		var simplified, hint, rule, category sql.NullString
		if err := rows.Scan(
			&tx.ID,
			&tx.BatchID,
			&tx.RowNumber,
			&bookedOn,
			&tx.RawDescription,
			&tx.SanitizedDescription,
			&tx.Amount,
			&simplified,
			&tx.Confidence,
			&hint,
			&rule,
			&category,
			&tx.Source,
			&rowErr,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if bookedOn.Valid {
			if t, err := time.Parse(bookedOnLayout, bookedOn.String); err == nil {
				tx.BookedOn = &t
			}
		}
		tx.Simplified = simplified.String
		tx.TypeHint = entity.TypeHint(hint.String)
		tx.MatchedRule = rule.String
		tx.Category = category.String
		tx.Error = rowErr.String
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Verify interface compliance
var _ port.TransactionRepository = (*TransactionRepository)(nil)
