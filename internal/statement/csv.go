package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/garyjia/spendlens/pkg/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a delimited statement export. The delimiter (';', ',' or tab)
// is guessed from the first lines.
func ReadCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = guessDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rowsFromRecords(records, utils.ParseStatementDate)
}

func guessDelimiter(data []byte) rune {
	sample := data
	lines := 0
	for i, b := range data {
		if b == '\n' {
			lines++
			if lines == 5 {
				sample = data[:i]
				break
			}
		}
	}

	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := bytes.Count(sample, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
