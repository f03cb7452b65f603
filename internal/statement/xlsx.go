package statement

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/spendlens/pkg/utils"
)

// ReadXLSX reads the first worksheet that carries a movement table.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for _, sheet := range sheets {
		// Raw values keep dates as serial numbers and amounts unformatted.
		records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		rows, err := rowsFromRecords(records, parseSheetDate)
		if errors.Is(err, ErrNoHeader) {
			continue
		}
		return rows, err
	}
	return nil, ErrNoHeader
}

// parseSheetDate accepts Excel serial dates as well as text dates.
func parseSheetDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", s, err)
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return utils.ParseStatementDate(s)
}
