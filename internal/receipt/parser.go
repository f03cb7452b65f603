// Package receipt turns text extracted from retailer receipts into structured
// documents. Each supported retailer layout has its own Parser; a Registry picks
// the parser whose detector recognises the text.
package receipt

import (
	"strings"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

// Parser handles one retailer receipt layout.
type Parser interface {
	// Name identifies the parser in stored receipts and logs.
	Name() string
	// CanParse is a cheap format check. It must not rely on brand names alone.
	CanParse(text string) bool
	// Parse extracts as much as it can and never fails.
	Parse(text string) *Result
}

// Result is the output of Parser.Parse.
type Result struct {
	Parser    string
	Extracted *entity.ReceiptDocument
	RawText   string
	// Warnings lists lines that looked like items but could not be read and
	// reconciliation problems between items and totals.
	Warnings []string
}

// Registry holds parsers in priority order.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry; earlier parsers win when several match.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: append([]Parser(nil), parsers...)}
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *Registry {
	return NewRegistry(NewMercadonaParser())
}

// Detect returns the first parser whose detector accepts text, or nil.
func (r *Registry) Detect(text string) Parser {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, p := range r.parsers {
		if p.CanParse(text) {
			return p
		}
	}
	return nil
}

// Parse runs the detected parser. ok is false when no parser recognised the
// text and the caller should fall back to generic extraction.
func (r *Registry) Parse(text string) (res *Result, ok bool) {
	p := r.Detect(text)
	if p == nil {
		return nil, false
	}
	return p.Parse(text), true
}

// Names lists registered parsers in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		names = append(names, p.Name())
	}
	return names
}
