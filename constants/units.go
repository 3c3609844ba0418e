package constants

import (
	"strings"
)

// Unit is the canonical measurement unit for a line item.
type Unit string

// Stable values (store these exact strings in DB).
const (
	UnitPcs Unit = "pcs"
	UnitKg  Unit = "kg"
	UnitG   Unit = "g"
	UnitL   Unit = "l"
	UnitMl  Unit = "ml"
)

var allUnits = []Unit{UnitPcs, UnitKg, UnitG, UnitL, UnitMl}

// unitSynonyms maps provider/OCR spellings to canonical units. Includes the
// Lithuanian abbreviations that show up on supplier invoices ("vnt" = pieces,
// "ltr" = litres) alongside the usual English/metric ones.
var unitSynonyms = map[string]Unit{
	"pcs":    UnitPcs,
	"pc":     UnitPcs,
	"piece":  UnitPcs,
	"pieces": UnitPcs,
	"unit":   UnitPcs,
	"units":  UnitPcs,
	"vnt":    UnitPcs,
	"vnt.":   UnitPcs,
	"kg":     UnitKg,
	"kg.":    UnitKg,
	"kgs":    UnitKg,
	"kilo":   UnitKg,
	"g":      UnitG,
	"g.":     UnitG,
	"gr":     UnitG,
	"gr.":    UnitG,
	"gram":   UnitG,
	"grams":  UnitG,
	"l":      UnitL,
	"l.":     UnitL,
	"ltr":    UnitL,
	"ltr.":   UnitL,
	"litre":  UnitL,
	"liter":  UnitL,
	"ml":     UnitMl,
	"ml.":    UnitMl,
}

// ParseUnit maps a raw unit string to a canonical Unit.
// Unrecognized or empty input falls back to pcs; the second return reports
// whether the input was actually recognized.
func ParseUnit(input string) (Unit, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return UnitPcs, false
	}
	if u, ok := unitSynonyms[normalized]; ok {
		return u, true
	}
	for _, u := range allUnits {
		if normalized == string(u) {
			return u, true
		}
	}
	return UnitPcs, false
}

// UnitStrings returns all canonical unit values as strings.
func UnitStrings() []string {
	result := make([]string, len(allUnits))
	for i, u := range allUnits {
		result[i] = string(u)
	}
	return result
}
