// Package pdf reads receipt PDFs with MuPDF through go-fitz.
package pdf

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/spendlens/internal/application/port"
)

// maxPages bounds how much of a document is read; receipts are one or two pages
const maxPages = 4

// Extractor implements port.PDFTextExtractor
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new PDF extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText returns the text layer of the first pages, one page per block.
// A scanned PDF yields an empty string.
func (e *Extractor) ExtractText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for n := 0; n < pages; n++ {
		text, err := doc.Text(n)
		if err != nil {
			e.logger.Warn("Failed to extract page text", zap.Int("page", n), zap.Error(err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	e.logger.Debug("Extracted PDF text",
		zap.Int("total_pages", doc.NumPage()),
		zap.Int("chars", b.Len()))
	return b.String(), nil
}

// RenderPage renders one page as a JPEG image
func (e *Extractor) RenderPage(data []byte, page int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", page, doc.NumPage())
	}

	img, err := doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

// Verify interface compliance
var _ port.PDFTextExtractor = (*Extractor)(nil)
