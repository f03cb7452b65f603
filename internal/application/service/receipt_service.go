package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/receipt"
	"github.com/garyjia/spendlens/pkg/utils"
)

// Parser names recorded for receipts that no retailer parser handled.
const (
	ParserAIText   = "ai-text"
	ParserAIVision = "ai-vision"
)

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ReceiptService parses, stores and lists receipts
type ReceiptService interface {
	ProcessText(ctx context.Context, text string) (*entity.StoredReceipt, error)
	ProcessFile(ctx context.Context, filename string, data []byte) (*entity.StoredReceipt, error)
	Get(ctx context.Context, id int64) (*entity.StoredReceipt, error)
	List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error)
}

type receiptServiceImpl struct {
	registry  *receipt.Registry
	repo      port.ReceiptRepository
	extractor port.ReceiptExtractor
	pdf       port.PDFTextExtractor
	files     port.FileStorage
	logger    Logger
}

// ReceiptServiceDeps groups the collaborators of ReceiptService.
// Extractor, PDF and Files are optional.
type ReceiptServiceDeps struct {
	Registry  *receipt.Registry
	Repo      port.ReceiptRepository
	Extractor port.ReceiptExtractor
	PDF       port.PDFTextExtractor
	Files     port.FileStorage
	Logger    Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(deps ReceiptServiceDeps) ReceiptService {
	registry := deps.Registry
	if registry == nil {
		registry = receipt.DefaultRegistry()
	}
	return &receiptServiceImpl{
		registry:  registry,
		repo:      deps.Repo,
		extractor: deps.Extractor,
		pdf:       deps.PDF,
		files:     deps.Files,
		logger:    deps.Logger,
	}
}

// ProcessText detects the retailer format and parses text. Unknown formats
// go to the AI extractor when one is configured.
func (s *receiptServiceImpl) ProcessText(ctx context.Context, text string) (*entity.StoredReceipt, error) {
	text = utils.SanitizeString(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	if res, ok := s.registry.Parse(text); ok && res != nil && res.Extracted != nil {
		stored := &entity.StoredReceipt{
			Parser:   res.Parser,
			Document: *res.Extracted,
			Warnings: res.Warnings,
		}
		return s.store(ctx, stored)
	}

	if s.extractor == nil {
		return nil, ErrNoParser
	}
	doc, err := s.extractor.ExtractFromText(ctx, text)
	if err != nil {
		s.logger.Error("AI receipt extraction failed", "error", err)
		return nil, fmt.Errorf("extract receipt: %w", err)
	}
	if doc == nil {
		return nil, ErrNoParser
	}
	doc.RawText = text
	return s.store(ctx, &entity.StoredReceipt{Parser: ParserAIText, Document: *doc})
}

// ProcessFile handles an uploaded receipt: text files and PDFs go through
// the text pipeline, images through the AI vision extractor.
func (s *receiptServiceImpl) ProcessFile(ctx context.Context, filename string, data []byte) (*entity.StoredReceipt, error) {
	ext, err := utils.ValidateExtension(filename, ".txt", ".pdf", ".jpg", ".jpeg", ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	s.keepOriginal(ctx, ext, data)

	switch ext {
	case ".txt":
		return s.ProcessText(ctx, string(data))
	case ".pdf":
		if s.pdf == nil {
			return nil, fmt.Errorf("%w: pdf extraction is not configured", ErrUnsupportedFile)
		}
		text, err := s.pdf.ExtractText(data)
		if err != nil {
			s.logger.Error("PDF text extraction failed", "error", err, "filename", filename)
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		if strings.TrimSpace(text) != "" || s.extractor == nil {
			return s.ProcessText(ctx, text)
		}
		// Scanned PDF: read the first page as an image
		page, err := s.pdf.RenderPage(data, 0)
		if err != nil {
			s.logger.Error("PDF page rendering failed", "error", err, "filename", filename)
			return nil, fmt.Errorf("render pdf page: %w", err)
		}
		return s.processImage(ctx, filename, page, "image/jpeg")
	}

	return s.processImage(ctx, filename, data, imageMIMETypes[ext])
}

func (s *receiptServiceImpl) processImage(ctx context.Context, filename string, data []byte, mimeType string) (*entity.StoredReceipt, error) {
	if s.extractor == nil {
		return nil, ErrNoParser
	}
	doc, err := s.extractor.ExtractFromImage(ctx, data, mimeType)
	if err != nil {
		s.logger.Error("AI image extraction failed", "error", err, "filename", filename)
		return nil, fmt.Errorf("extract receipt image: %w", err)
	}
	if doc == nil {
		return nil, ErrNoParser
	}
	return s.store(ctx, &entity.StoredReceipt{Parser: ParserAIVision, Document: *doc})
}

// keepOriginal saves the upload for auditing. Failures are logged only.
func (s *receiptServiceImpl) keepOriginal(ctx context.Context, ext string, data []byte) {
	if s.files == nil {
		return
	}
	name := path.Join("receipts", uuid.NewString()+ext)
	if err := s.files.Save(ctx, name, data); err != nil {
		s.logger.Error("Failed to keep original upload", "error", err, "path", name)
	}
}

func (s *receiptServiceImpl) store(ctx context.Context, stored *entity.StoredReceipt) (*entity.StoredReceipt, error) {
	if stored.Document.Currency == "" {
		stored.Document.Currency = entity.DefaultReceiptCurrency
	}
	if stored.Warnings == nil {
		stored.Warnings = []string{}
	}
	if err := s.repo.Create(ctx, stored); err != nil {
		s.logger.Error("Failed to store receipt", "error", err, "parser", stored.Parser)
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	s.logger.Info("Receipt stored",
		"id", stored.ID,
		"parser", stored.Parser,
		"items", len(stored.Document.Items),
		"warnings", len(stored.Warnings))
	return stored, nil
}

// Get returns a stored receipt
func (s *receiptServiceImpl) Get(ctx context.Context, id int64) (*entity.StoredReceipt, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Error("Failed to get receipt", "error", err, "id", id)
		}
		return nil, fmt.Errorf("get receipt %d: %w", id, err)
	}
	return r, nil
}

// List returns stored receipts, newest first
func (s *receiptServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	receipts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list receipts", "error", err)
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}
