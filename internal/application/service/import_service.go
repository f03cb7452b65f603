package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/statement"
)

// DefaultImportConcurrency bounds parallel categorization when unset.
const DefaultImportConcurrency = 8

// RowError reports a statement row that could not be fully processed.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportSummary describes one statement import. Total is the sum of
// Classified, Fallback, Unclassified and Failed.
type ImportSummary struct {
	BatchID      string     `json:"batch_id"`
	Total        int        `json:"total"`
	Classified   int        `json:"classified"`
	Fallback     int        `json:"fallback"`
	Unclassified int        `json:"unclassified"`
	Failed       int        `json:"failed"`
	Errors       []RowError `json:"errors"`
}

// ImportService categorizes and stores statement rows
type ImportService interface {
	Import(ctx context.Context, rows []statement.Row) (*ImportSummary, error)
	ListBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error)
}

type importServiceImpl struct {
	categorizer    CategorizationService
	txRepo         port.TransactionRepository
	txManager      port.TransactionManager
	maxConcurrency int
	logger         Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	categorizer CategorizationService,
	txRepo port.TransactionRepository,
	txManager port.TransactionManager,
	maxConcurrency int,
	logger Logger,
) ImportService {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultImportConcurrency
	}
	return &importServiceImpl{
		categorizer:    categorizer,
		txRepo:         txRepo,
		txManager:      txManager,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Import categorizes every row with bounded concurrency and stores the batch
// in one database transaction. A bad row is recorded, never fatal.
func (s *importServiceImpl) Import(ctx context.Context, rows []statement.Row) (*ImportSummary, error) {
	batchID := uuid.NewString()
	now := time.Now().UTC()
	txs := make([]*entity.Transaction, len(rows))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.maxConcurrency)
	for i, row := range rows {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			txs[i] = s.categorizeRow(ctx, batchID, row, now)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("import cancelled: %w", err)
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		for _, tx := range txs {
			if err := s.txRepo.Create(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to store import batch", "error", err, "batch_id", batchID)
		return nil, fmt.Errorf("store import batch: %w", err)
	}

	summary := summarize(batchID, txs)
	s.logger.Info("Statement imported",
		"batch_id", batchID,
		"total", summary.Total,
		"classified", summary.Classified,
		"fallback", summary.Fallback,
		"unclassified", summary.Unclassified,
		"failed", summary.Failed)
	return summary, nil
}

func (s *importServiceImpl) categorizeRow(ctx context.Context, batchID string, row statement.Row, now time.Time) *entity.Transaction {
	tx := &entity.Transaction{
		BatchID:        batchID,
		RowNumber:      row.Number,
		BookedOn:       row.Date,
		RawDescription: row.Description,
		Amount:         row.Amount,
		Source:         entity.SourceNone,
		Error:          row.Error,
		CreatedAt:      now,
	}
	if row.Description == "" {
		return tx
	}

	cat, err := s.categorizer.Categorize(ctx, row.Description)
	if err != nil {
		if tx.Error == "" {
			tx.Error = err.Error()
		}
		return tx
	}

	tx.SanitizedDescription = cat.Sanitized
	tx.Simplified = cat.Result.Simplified
	tx.Confidence = cat.Result.Confidence
	tx.TypeHint = cat.Result.TypeHint
	tx.MatchedRule = cat.Result.MatchedRule
	tx.Category = cat.Category
	tx.Source = cat.Source
	return tx
}

func summarize(batchID string, txs []*entity.Transaction) *ImportSummary {
	summary := &ImportSummary{BatchID: batchID, Total: len(txs), Errors: []RowError{}}
	for _, tx := range txs {
		if tx.Error != "" {
			summary.Failed++
			summary.Errors = append(summary.Errors, RowError{Row: tx.RowNumber, Error: tx.Error})
			continue
		}
		switch tx.Source {
		case entity.SourcePreference, entity.SourceRule:
			summary.Classified++
		case entity.SourceAI:
			summary.Fallback++
		default:
			summary.Unclassified++
		}
	}
	return summary
}

// ListBatch returns the stored rows of one import
func (s *importServiceImpl) ListBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error) {
	txs, err := s.txRepo.ListByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to list batch", "error", err, "batch_id", batchID)
		return nil, fmt.Errorf("list batch: %w", err)
	}
	return txs, nil
}
