package normalize

import (
	"strconv"
	"strings"
	"time"
)

// ParseDecimal coerces a provider-returned amount into a float. It accepts
// plain "1234.56" as well as European "1 234,56" (space thousands separator,
// comma decimal separator) and mixed "1.234,56" / "1,234.56" forms. Malformed
// input degrades to 0 — an invoice with one bad field is still more useful
// reviewed than rejected.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// Keep digits and separators only; currency symbols, spaces and OCR
	// debris all go.
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" || s == "-" {
		return 0
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Whichever separator appears last is the decimal point; the other
		// is a thousands separator.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", -1)
			s = removeAllButLast(s, '.')
		} else {
			s = strings.ReplaceAll(s, ",", "")
			s = removeAllButLast(s, '.')
		}
	case lastComma >= 0:
		// Trailing comma group is the decimal part.
		s = removeAllButLast(s, ',')
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		s = removeAllButLast(s, '.')
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func removeAllButLast(s string, sep byte) string {
	last := strings.LastIndexByte(s, sep)
	if last < 0 {
		return s
	}
	head := strings.ReplaceAll(s[:last], string(sep), "")
	return head + s[last:]
}

// dateLayouts are tried in order. The first two are what providers usually
// emit; the rest cover OCR'd paper invoices.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006.01.02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate normalizes a date string to YYYY-MM-DD. The second return
// reports whether the input actually parsed; callers fall back to the
// processing date when it did not (a missing date is not fatal).
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
