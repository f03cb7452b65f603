package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/pkg/utils"
)

// MercadonaParserName is stored with receipts parsed by MercadonaParser.
const MercadonaParserName = "mercadona"

// Substrings that only appear in the simplified-invoice layout. The brand name
// is deliberately absent: free text mentioning the store must not match.
var mercadonaFingerprints = []string{
	"FACTURA SIMPLIFICADA",
	"BASE IMPONIBLE (€)",
	"IVA BASE IMPONIBLE",
}

var (
	legalNameRe   = regexp.MustCompile(`^\s*([^,\n]+,\s*S\.\s?[AL](?:\.U)?)\.?(?:\s|$)`)
	receiptTimeRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}:\d{2}(?::\d{2})?)`)
	itemHeaderRe  = regexp.MustCompile(`(?i)^\s*descripci[oó]n\b`)
	invoiceTypeRe = regexp.MustCompile(`(?i)factura\s+simplificada`)
	grandTotalRe  = regexp.MustCompile(`(?i)^\s*TOTAL\s*\((?:€|EUR)\)\s*:?\s*(\d+[.,]\d{2})\s*$`)
	plainTotalRe  = regexp.MustCompile(`(?i)^\s*TOTAL\s*:?\s*(\d+[.,]\d{2})\s*€?\s*$`)
	taxHeaderRe   = regexp.MustCompile(`(?i)BASE\s+IMPONIBLE`)
	taxRowRe      = regexp.MustCompile(`^\s*(\d{1,2}(?:[.,]\d{1,2})?)\s*%\s+(\d+[.,]\d{2})\s+(\d+[.,]\d{2})\s*$`)
	weightLineRe  = regexp.MustCompile(`(?i)^\s*(\d+[.,]\d{1,3})\s*kg\s+(\d+[.,]\d{2})\s*€/kg\s+(\d+[.,]\d{2})\s*$`)
	priceTokenRe  = regexp.MustCompile(`^\d{1,6}[.,]\d{2}$`)
	quantityRe    = regexp.MustCompile(`^\d{1,3}$`)
	hasLetterRe   = regexp.MustCompile(`\pL`)
)

// MercadonaParser reads Mercadona simplified invoices ("factura simplificada").
type MercadonaParser struct {
	currency string
}

// NewMercadonaParser creates the parser. Mercadona prints euro amounts with a
// decimal comma; utils.ParseAmount also accepts a dot for OCR output.
func NewMercadonaParser() *MercadonaParser {
	return &MercadonaParser{currency: entity.DefaultReceiptCurrency}
}

// Name implements Parser.
func (p *MercadonaParser) Name() string {
	return MercadonaParserName
}

// CanParse implements Parser.
func (p *MercadonaParser) CanParse(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	upper := strings.ToUpper(text)
	for _, fp := range mercadonaFingerprints {
		if strings.Contains(upper, fp) {
			return true
		}
	}
	return false
}

// Parse implements Parser.
func (p *MercadonaParser) Parse(text string) (res *Result) {
	doc := &entity.ReceiptDocument{
		Currency: p.currency,
		Items:    []entity.ReceiptLineItem{},
		Taxes:    []entity.TaxLine{},
		RawText:  text,
	}
	res = &Result{Parser: p.Name(), Extracted: doc, RawText: text}

	defer func() {
		if r := recover(); r != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("parser aborted: %v", r))
		}
	}()

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	p.parseHeader(lines, doc)
	start, end := itemSection(lines)
	res.Warnings = append(res.Warnings, p.parseItems(lines[start:end], doc)...)
	p.parseTotals(lines, doc)

	if doc.TotalAmount > 0 && len(doc.Items) > 0 {
		prices := make([]float64, 0, len(doc.Items))
		for _, it := range doc.Items {
			prices = append(prices, it.TotalPrice)
		}
		sum := utils.SumAmounts(prices...)
		if !utils.AmountsEqual(sum, doc.TotalAmount) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("items add up to %.2f but receipt total is %.2f", sum, doc.TotalAmount))
		}
	}

	return res
}

func (p *MercadonaParser) parseHeader(lines []string, doc *entity.ReceiptDocument) {
	for _, line := range lines {
		if m := legalNameRe.FindStringSubmatch(line); m != nil {
			doc.StoreName = strings.TrimSpace(m[1])
			break
		}
	}

	for _, line := range lines {
		m := receiptTimeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		instant, err := utils.NormalizeReceiptInstant(m[1], m[2], m[3], m[4])
		if err != nil {
			continue
		}
		doc.ReceiptDateISO = instant.ISODate
		doc.ReceiptDate = instant.DMYDate
		doc.ReceiptTime = instant.Time
		break
	}
}

// itemSection returns the [start, end) line range holding article lines.
func itemSection(lines []string) (int, int) {
	start := -1
	for i, line := range lines {
		if itemHeaderRe.MatchString(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		for i, line := range lines {
			if invoiceTypeRe.MatchString(line) {
				start = i + 1
				break
			}
		}
	}
	if start < 0 {
		for i, line := range lines {
			if receiptTimeRe.MatchString(line) {
				start = i + 1
				break
			}
		}
	}
	if start < 0 {
		start = 0
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if grandTotalRe.MatchString(lines[i]) || plainTotalRe.MatchString(lines[i]) {
			end = i
			break
		}
	}
	return start, end
}

func (p *MercadonaParser) parseItems(lines []string, doc *entity.ReceiptDocument) []string {
	var warnings []string
	var pending *entity.ReceiptLineItem

	flushPending := func() {
		if pending != nil {
			warnings = append(warnings, fmt.Sprintf("item without price: %s", pending.Description))
			pending = nil
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := weightLineRe.FindStringSubmatch(line); m != nil {
			if pending == nil {
				warnings = append(warnings, fmt.Sprintf("unparsed line: %s", line))
				continue
			}
			w, _ := utils.ParseDecimal(m[1])
			weight := w.Round(3).InexactFloat64()
			perKg, _ := utils.ParseAmount(m[2])
			total, _ := utils.ParseAmount(m[3])
			pending.WeightKg = &weight
			pending.PricePerKg = &perKg
			pending.TotalPrice = total
			pending.PricePerUnit = utils.UnitPrice(total, pending.Quantity)
			pending.UnitPriceDerived = true
			doc.Items = append(doc.Items, *pending)
			pending = nil
			continue
		}

		item, priced, ok := parseItemLine(line)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unparsed line: %s", line))
			continue
		}
		flushPending()
		if !priced {
			pending = &item
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	flushPending()

	return warnings
}

// parseItemLine reads "qty description [unit] total". A leading integer is a
// quantity only when followed by non-price text; only the last one or two
// tokens can be prices, so digits inside descriptions ("2L", "40 LAV") are
// never taken for amounts.
func parseItemLine(line string) (item entity.ReceiptLineItem, priced bool, ok bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return item, false, false
	}

	quantity := 1
	start := 0
	if len(tokens) > 1 && quantityRe.MatchString(tokens[0]) && !priceTokenRe.MatchString(tokens[1]) {
		if q, err := strconv.Atoi(tokens[0]); err == nil && q > 0 {
			quantity = q
			start = 1
		}
	}

	end := len(tokens)
	var prices []string
	for end > start+1 && len(prices) < 2 && priceTokenRe.MatchString(tokens[end-1]) {
		prices = append([]string{tokens[end-1]}, prices...)
		end--
	}

	description := strings.Join(tokens[start:end], " ")
	if !hasLetterRe.MatchString(description) {
		return item, false, false
	}

	item = entity.ReceiptLineItem{
		Description: description,
		Quantity:    quantity,
	}

	switch len(prices) {
	case 0:
		return item, false, true
	case 1:
		total, err := utils.ParseAmount(prices[0])
		if err != nil {
			return item, false, false
		}
		item.TotalPrice = total
		item.PricePerUnit = utils.UnitPrice(total, quantity)
		item.UnitPriceDerived = true
	default:
		unit, err1 := utils.ParseAmount(prices[0])
		total, err2 := utils.ParseAmount(prices[1])
		if err1 != nil || err2 != nil {
			return item, false, false
		}
		item.PricePerUnit = unit
		item.TotalPrice = total
	}
	return item, true, true
}

func (p *MercadonaParser) parseTotals(lines []string, doc *entity.ReceiptDocument) {
	for _, line := range lines {
		if m := grandTotalRe.FindStringSubmatch(line); m != nil {
			if v, err := utils.ParseAmount(m[1]); err == nil {
				doc.TotalAmount = v
				break
			}
		}
	}
	if doc.TotalAmount == 0 {
		for _, line := range lines {
			if m := plainTotalRe.FindStringSubmatch(line); m != nil {
				if v, err := utils.ParseAmount(m[1]); err == nil {
					doc.TotalAmount = v
					break
				}
			}
		}
	}

	inTaxTable := false
	var cuotas []float64
	for _, line := range lines {
		if taxHeaderRe.MatchString(line) {
			inTaxTable = true
			continue
		}
		if !inTaxTable {
			continue
		}
		m := taxRowRe.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" && len(cuotas) > 0 {
				break
			}
			continue
		}
		rate, err1 := utils.ParseAmount(m[1])
		base, err2 := utils.ParseAmount(m[2])
		cuota, err3 := utils.ParseAmount(m[3])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		doc.Taxes = append(doc.Taxes, entity.TaxLine{RatePercent: rate, Base: base, Cuota: cuota})
		cuotas = append(cuotas, cuota)
	}
	doc.TaxesTotalCuota = utils.SumAmounts(cuotas...)
}
