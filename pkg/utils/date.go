package utils

import (
	"fmt"
	"strings"
	"time"
)

// ReceiptInstant carries the three renderings of one receipt timestamp.
type ReceiptInstant struct {
	ISODate string // YYYY-MM-DD
	DMYDate string // DD-MM-YYYY
	Time    string // HH:MM:SS
}

// NormalizeReceiptInstant validates a day/month/year + clock reading and
// renders it in the receipt formats. Seconds may be empty.
func NormalizeReceiptInstant(day, month, year, clock string) (ReceiptInstant, error) {
	clock = PadClock(clock)
	stamp := fmt.Sprintf("%s/%s/%s %s", leftPad2(day), leftPad2(month), year, clock)

	t, err := time.Parse("02/01/2006 15:04:05", stamp)
	if err != nil {
		return ReceiptInstant{}, fmt.Errorf("invalid receipt date %q: %w", stamp, err)
	}

	return ReceiptInstant{
		ISODate: t.Format("2006-01-02"),
		DMYDate: t.Format("02-01-2006"),
		Time:    t.Format("15:04:05"),
	}, nil
}

// PadClock turns "HH:MM" into "HH:MM:00" and left-pads single-digit hours.
func PadClock(clock string) string {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	for i := range parts {
		parts[i] = leftPad2(parts[i])
	}
	for len(parts) < 3 {
		parts = append(parts, "00")
	}
	return strings.Join(parts[:3], ":")
}

// ParseStatementDate accepts the date layouts found in bank exports.
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		"02/01/2006",
		"02-01-2006",
		"2006-01-02",
		"02/01/06",
		"2/1/2006",
		"2006/01/02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func leftPad2(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
