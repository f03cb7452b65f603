package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = port.ErrNotFound

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a receipt and its line items atomically
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.StoredReceipt) error {
	doc := receipt.Document

	taxes, err := json.Marshal(nonNilTaxes(doc.Taxes))
	if err != nil {
		return fmt.Errorf("failed to encode taxes: %w", err)
	}
	warnings, err := json.Marshal(nonNilStrings(receipt.Warnings))
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	return r.inTx(ctx, func(exec sqlite.Executor) error {
		query := `
			INSERT INTO receipts (
				parser, store_name, receipt_date_iso, receipt_date, receipt_time,
				currency, total_amount, taxes_total_cuota, taxes, raw_text, warnings
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := exec.ExecContext(ctx, query,
			receipt.Parser,
			doc.StoreName,
			doc.ReceiptDateISO,
			doc.ReceiptDate,
			doc.ReceiptTime,
			doc.Currency,
			doc.TotalAmount,
			doc.TaxesTotalCuota,
			string(taxes),
			doc.RawText,
			string(warnings),
		)
		if err != nil {
			r.logger.Error("Failed to create receipt",
				zap.String("parser", receipt.Parser),
				zap.String("store", doc.StoreName),
				zap.Error(err))
			return fmt.Errorf("failed to create receipt: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		itemQuery := `
			INSERT INTO receipt_items (
				receipt_id, position, description, quantity, price_per_unit,
				total_price, unit_price_derived, weight_kg, price_per_kg, category
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for i, item := range doc.Items {
			if _, err := exec.ExecContext(ctx, itemQuery,
				id,
				i,
				item.Description,
				item.Quantity,
				item.PricePerUnit,
				item.TotalPrice,
				item.UnitPriceDerived,
				item.WeightKg,
				item.PricePerKg,
				item.Category,
			); err != nil {
				r.logger.Error("Failed to create receipt item",
					zap.Int64("receipt_id", id),
					zap.Int("position", i),
					zap.Error(err))
				return fmt.Errorf("failed to create receipt item: %w", err)
			}
		}

		receipt.ID = id
		return nil
	})
}

// GetByID retrieves a receipt with its items
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*entity.StoredReceipt, error) {
	query := `
		SELECT id, parser, store_name, receipt_date_iso, receipt_date, receipt_time,
			currency, total_amount, taxes_total_cuota, taxes, raw_text, warnings, created_at
		FROM receipts
		WHERE id = ?
	`

	exec := sqlite.ExecutorFor(ctx, r.db)
	receipt, err := scanReceipt(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get receipt by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if err := r.loadItems(ctx, exec, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// List returns receipts newest first
func (r *ReceiptRepository) List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error) {
	query := `
		SELECT id, parser, store_name, receipt_date_iso, receipt_date, receipt_time,
			currency, total_amount, taxes_total_cuota, taxes, raw_text, warnings, created_at
		FROM receipts
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	exec := sqlite.ExecutorFor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.Error(err))
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	var receipts []*entity.StoredReceipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	rows.Close()

	for _, receipt := range receipts {
		if err := r.loadItems(ctx, exec, receipt); err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

func (r *ReceiptRepository) loadItems(ctx context.Context, exec sqlite.Executor, receipt *entity.StoredReceipt) error {
	query := `
		SELECT description, quantity, price_per_unit, total_price, unit_price_derived,
			weight_kg, price_per_kg, category
		FROM receipt_items
		WHERE receipt_id = ?
		ORDER BY position
	`

	rows, err := exec.QueryContext(ctx, query, receipt.ID)
	if err != nil {
		r.logger.Error("Failed to load receipt items",
			zap.Int64("receipt_id", receipt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to load receipt items: %w", err)
	}
	defer rows.Close()

	items := []entity.ReceiptLineItem{}
	for rows.Next() {
		var (
			item     entity.ReceiptLineItem
			weight   sql.NullFloat64
			perKg    sql.NullFloat64
			category sql.NullString
		)
		if err := rows.Scan(
			&item.Description,
			&item.Quantity,
			&item.PricePerUnit,
			&item.TotalPrice,
			&item.UnitPriceDerived,
			&weight,
			&perKg,
			&category,
		); err != nil {
			return fmt.Errorf("failed to scan receipt item: %w", err)
		}
		if weight.Valid {
			item.WeightKg = &weight.Float64
		}
		if perKg.Valid {
			item.PricePerKg = &perKg.Float64
		}
		if category.Valid {
			item.Category = &category.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate receipt items: %w", err)
	}

	receipt.Document.Items = items
	return nil
}

// inTx runs fn inside the caller's transaction or a new one
func (r *ReceiptRepository) inTx(ctx context.Context, fn func(exec sqlite.Executor) error) error {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row rowScanner) (*entity.StoredReceipt, error) {
	var (
		receipt  entity.StoredReceipt
		taxes    string
		warnings string
	)
	doc := &receipt.Document

	if err := row.Scan(
		&receipt.ID,
		&receipt.Parser,
		&doc.StoreName,
		&doc.ReceiptDateISO,
		&doc.ReceiptDate,
		&doc.ReceiptTime,
		&doc.Currency,
		&doc.TotalAmount,
		&doc.TaxesTotalCuota,
		&taxes,
		&doc.RawText,
		&warnings,
		&receipt.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(taxes), &doc.Taxes); err != nil {
		return nil, fmt.Errorf("failed to decode taxes: %w", err)
	}
	if err := json.Unmarshal([]byte(warnings), &receipt.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}
	doc.Taxes = nonNilTaxes(doc.Taxes)
	receipt.Warnings = nonNilStrings(receipt.Warnings)
	return &receipt, nil
}

func nonNilTaxes(taxes []entity.TaxLine) []entity.TaxLine {
	if taxes == nil {
		return []entity.TaxLine{}
	}
	return taxes
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
