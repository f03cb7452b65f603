package port

import (
	"context"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

// AICategorizer is the fallback used when no rule matches a description
type AICategorizer interface {
	Categorize(ctx context.Context, sanitized string, tokens []string) (*entity.AICategorization, error)
}

// ReceiptExtractor extracts a receipt from text or an image when no
// retailer-specific parser recognises it
type ReceiptExtractor interface {
	ExtractFromText(ctx context.Context, text string) (*entity.ReceiptDocument, error)
	ExtractFromImage(ctx context.Context, data []byte, mimeType string) (*entity.ReceiptDocument, error)
}

// PDFTextExtractor turns a PDF document into plain text, or into a JPEG
// page image when the PDF is a scan without a text layer
type PDFTextExtractor interface {
	ExtractText(data []byte) (string, error)
	RenderPage(data []byte, page int) ([]byte, error)
}
