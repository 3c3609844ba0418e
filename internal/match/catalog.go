package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// DefaultCatalogThreshold is lower than the grouping threshold on purpose:
// catalog matches are suggestions subject to human confirmation, whereas
// intra-batch grouping silently merges.
const DefaultCatalogThreshold = 0.6

// prefixBoost rewards a candidate whose canonical key extends the query (or
// vice versa), which similarity alone underrates for long names.
const prefixBoost = 0.2

// maxSuggestions caps the ranked list shown to the reviewer.
const maxSuggestions = 3

// Matcher proposes catalog products for an extracted name. Advisory only:
// nothing is ever auto-committed, a downstream approval step decides
// match/create/skip per group.
type Matcher struct {
	Threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultCatalogThreshold
	}
	return &Matcher{Threshold: threshold}
}

// SuggestForGroup scores a product group against the catalog.
func (m *Matcher) SuggestForGroup(grp entity.ProductGroup, catalog []entity.CatalogProduct) []entity.CatalogSuggestion {
	return m.Suggest(grp.DisplayName, grp.Unit, catalog)
}

// Suggest returns up to three unit-compatible candidates ranked by
// confidence. An exact canonical-key (or SKU) match yields confidence 1.0.
func (m *Matcher) Suggest(name string, unit constants.Unit, catalog []entity.CatalogProduct) []entity.CatalogSuggestion {
	key := Canonicalize(name)
	trimmed := strings.TrimSpace(name)

	var out []entity.CatalogSuggestion
	for _, p := range catalog {
		if p.Unit != unit {
			continue
		}

		if p.SKU != "" && strings.EqualFold(trimmed, p.SKU) {
			out = append(out, entity.CatalogSuggestion{
				ProductID: p.ID, Name: p.Name, Confidence: 1.0, Reason: "Exact match",
			})
			continue
		}

		productKey := Canonicalize(p.Name)
		if key != "" && key == productKey {
			out = append(out, entity.CatalogSuggestion{
				ProductID: p.ID, Name: p.Name, Confidence: 1.0, Reason: "Exact match",
			})
			continue
		}

		score := Similarity(key, productKey)
		reason := fmt.Sprintf("Name similarity %d%%", int(score*100))
		if key != "" && productKey != "" &&
			(strings.HasPrefix(productKey, key) || strings.HasPrefix(key, productKey)) {
			score += prefixBoost
			if score > 1.0 {
				score = 1.0
			}
			reason = fmt.Sprintf("Name prefix match (%d%%)", int(score*100))
		}
		if score < m.Threshold {
			continue
		}
		out = append(out, entity.CatalogSuggestion{
			ProductID: p.ID, Name: p.Name, Confidence: score, Reason: reason,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
