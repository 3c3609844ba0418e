package match

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
)

// reQuantityToken matches bare numeric tokens and compound quantity tokens
// after punctuation removal: "2", "25", "1kg", "500ml", "4x25kg".
var reQuantityToken = regexp.MustCompile(`^(?:\d+x)?\d+(?:kg|g|l|ml|ltr|gr|vnt|pcs)?$`)

// Canonicalize derives the comparison key for a product name: lower-case,
// letters/digits/whitespace only (accented letters survive), unit and
// quantity tokens removed, whitespace collapsed. The key is for similarity
// comparison, never for display.
func Canonicalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, tok := range fields {
		if isUnitToken(tok) || reQuantityToken.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func isUnitToken(tok string) bool {
	_, ok := constants.ParseUnit(tok)
	return ok
}
