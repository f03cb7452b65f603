// Package statement reads bank and card statement exports (CSV and XLSX)
// into rows of date, description and signed amount.
package statement

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/garyjia/spendlens/pkg/utils"
)

// headerScanLimit is how many leading rows may precede the header; banks put
// account summaries above the movement table.
const headerScanLimit = 20

var (
	// ErrNoHeader is returned when no description column can be located.
	ErrNoHeader = errors.New("statement header not found")
	// ErrUnsupportedFormat is returned for file types other than CSV and XLSX.
	ErrUnsupportedFormat = errors.New("unsupported statement format")
)

// Row is one movement of a statement.
type Row struct {
	Number      int        `json:"row_number"`
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Error       string     `json:"error,omitempty"`
}

// Column aliases, compared after lower-casing and accent folding.
var (
	dateHeaders        = []string{"fecha operacion", "fecha", "f operacion", "f valor", "date", "booking date", "transaction date", "posted"}
	descriptionHeaders = []string{"concepto", "descripcion", "description", "detalle", "movimiento", "details", "payee", "memo", "narrative"}
	amountHeaders      = []string{"importe", "amount", "cantidad", "value"}
	debitHeaders       = []string{"cargo", "debe", "debit", "withdrawal"}
	creditHeaders      = []string{"abono", "haber", "credit", "deposit"}
)

type columns struct {
	date, description, amount, debit, credit int
}

// Read dispatches on the file extension.
func Read(filename string, r io.Reader) ([]Row, error) {
	ext, err := utils.ValidateExtension(filename, ".csv", ".txt", ".xlsx")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if ext == ".xlsx" {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// rowsFromRecords locates the header and converts the records below it.
// Date and amount problems are recorded on the row; they never fail the file.
func rowsFromRecords(records [][]string, parseDate func(string) (time.Time, error)) ([]Row, error) {
	headerIdx, cols, ok := findHeader(records)
	if !ok {
		return nil, ErrNoHeader
	}

	rows := []Row{}
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		desc := strings.TrimSpace(utils.SanitizeString(cell(rec, cols.description)))
		amountText := strings.TrimSpace(cell(rec, cols.amount))
		debitText := strings.TrimSpace(cell(rec, cols.debit))
		creditText := strings.TrimSpace(cell(rec, cols.credit))
		if desc == "" && amountText == "" && debitText == "" && creditText == "" {
			continue
		}

		row := Row{Number: i + 1, Description: desc}
		var problems []string

		if raw := strings.TrimSpace(cell(rec, cols.date)); raw != "" {
			if d, err := parseDate(raw); err == nil {
				row.Date = &d
			} else {
				problems = append(problems, err.Error())
			}
		}

		amount, err := rowAmount(amountText, debitText, creditText)
		if err != nil {
			problems = append(problems, err.Error())
		}
		row.Amount = amount

		if desc == "" {
			problems = append(problems, "empty description")
		}
		row.Error = strings.Join(problems, "; ")
		rows = append(rows, row)
	}
	return rows, nil
}

func rowAmount(amount, debit, credit string) (float64, error) {
	if amount != "" {
		return utils.ParseAmount(amount)
	}
	switch {
	case debit != "":
		v, err := utils.ParseAmount(debit)
		if err != nil {
			return 0, err
		}
		if v > 0 {
			v = -v
		}
		return v, nil
	case credit != "":
		return utils.ParseAmount(credit)
	}
	return 0, fmt.Errorf("missing amount")
}

func findHeader(records [][]string) (int, columns, bool) {
	for i := 0; i < len(records) && i < headerScanLimit; i++ {
		cols := columns{date: -1, description: -1, amount: -1, debit: -1, credit: -1}
		for j, name := range records[i] {
			h := normalizeHeader(name)
			if h == "" {
				continue
			}
			switch {
			case cols.description < 0 && matchesAny(h, descriptionHeaders):
				cols.description = j
			case cols.date < 0 && matchesAny(h, dateHeaders):
				cols.date = j
			case cols.amount < 0 && matchesAny(h, amountHeaders):
				cols.amount = j
			case cols.debit < 0 && matchesAny(h, debitHeaders):
				cols.debit = j
			case cols.credit < 0 && matchesAny(h, creditHeaders):
				cols.credit = j
			}
		}
		if cols.description >= 0 && (cols.amount >= 0 || cols.debit >= 0 || cols.credit >= 0) {
			return i, cols, true
		}
	}
	return 0, columns{}, false
}

func matchesAny(header string, aliases []string) bool {
	for _, a := range aliases {
		if header == a || strings.HasPrefix(header, a+" ") {
			return true
		}
	}
	return false
}

// normalizeHeader lower-cases, strips accents and reduces punctuation to
// single spaces: "Importe (€)" becomes "importe".
func normalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
