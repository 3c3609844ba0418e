package normalize

import (
	"strings"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
)

// UnitRule infers a unit from keywords in the product name. Rules are data,
// not control flow, so new locales extend the table instead of the code.
type UnitRule struct {
	Unit     constants.Unit
	Keywords []string
}

// defaultUnitRules covers the produce/liquid vocabulary seen on the supplier
// invoices this pipeline was built for (Lithuanian wholesale). Substring
// match against the lowercased product name.
var defaultUnitRules = []UnitRule{
	{
		Unit: constants.UnitKg,
		Keywords: []string{
			"pomidor", "agurk", "mork", "bulv", "svogun", "svogūn",
			"kopust", "paprik", "obuol", "citrin", "banan", "česnak",
			"vištien", "vistien", "jautien", "kiaulien", "mės", "mes",
			"sūr", "sur", "milt", "cukr", "ryž", "ryz",
		},
	},
	{
		Unit: constants.UnitL,
		Keywords: []string{
			"pien", "aliej", "sult", "vand", "gėrim", "gerim",
			"sirup", "grietinėl", "grietinel",
		},
	},
}

// InferUnit guesses a unit from the product name using the rule table.
// Returns false when no keyword matches.
func InferUnit(rules []UnitRule, name string) (constants.Unit, bool) {
	if rules == nil {
		rules = defaultUnitRules
	}
	lower := strings.ToLower(name)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Unit, true
			}
		}
	}
	return constants.UnitPcs, false
}

// ResolveUnit combines explicit unit parsing with keyword inference:
// a recognized unit string wins, then name keywords, then pcs.
func ResolveUnit(rules []UnitRule, rawUnit, name string) constants.Unit {
	if u, ok := constants.ParseUnit(rawUnit); ok {
		return u
	}
	if u, ok := InferUnit(rules, name); ok {
		return u
	}
	return constants.UnitPcs
}
