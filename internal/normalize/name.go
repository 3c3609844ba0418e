package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Zero-width and soft-hyphen characters that OCR and PDF text layers
	// leak into product names.
	invisibleRunes = strings.NewReplacer(
		"\u00ad", "", // soft hyphen
		"\u200b", "", // zero-width space
		"\u200c", "", // zero-width non-joiner
		"\u200d", "", // zero-width joiner
		"\ufeff", "", // BOM
	)

	reWhitespace = regexp.MustCompile(`\s+`)

	// Trailing SKU-like codes: a separated run of 5+ uppercase letters and
	// digits, e.g. "Pomidorai AB1234". Stripped only when it contains a
	// digit, so an all-caps last word survives.
	reTrailingSKU = regexp.MustCompile(`[\s\-/]+[A-Z0-9]{5,}$`)
	reHasDigit    = regexp.MustCompile(`\d`)
)

// SanitizeName cleans one raw product name. The second return is false when
// the result is not a plausible product name (empty, or more than 60% digits
// once symbols are removed) — the caller substitutes a positional placeholder
// and flags the line for review.
func SanitizeName(s string) (string, bool) {
	s = invisibleRunes.Replace(s)
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	if loc := reTrailingSKU.FindStringIndex(s); loc != nil && reHasDigit.MatchString(s[loc[0]:]) {
		s = s[:loc[0]]
	}
	s = strings.TrimSpace(s)

	var letters, digits int
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	total := letters + digits
	if total == 0 {
		return s, false
	}
	if float64(digits)/float64(total) > 0.6 {
		return s, false
	}
	return s, true
}
