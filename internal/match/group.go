package match

import (
	"log/slog"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// DefaultGroupThreshold is the minimum similarity for silently merging two
// line items into one group. An empirical constant, kept configurable.
const DefaultGroupThreshold = 0.7

// LineRef addresses one normalized line item within a batch.
type LineRef struct {
	InvoiceIndex int
	LineIndex    int
	Item         entity.NormalizedLineItem
}

// Grouper clusters line items across a batch of invoices into groups that
// represent the same physical product.
type Grouper struct {
	Threshold float64
	Logger    *slog.Logger
}

func NewGrouper(threshold float64, logger *slog.Logger) *Grouper {
	if threshold <= 0 {
		threshold = DefaultGroupThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{Threshold: threshold, Logger: logger}
}

type group struct {
	key      string // canonical key of the current display name
	unit     constants.Unit
	variants []string // distinct cleaned name variants, arrival order
	display  string
	items    []entity.GroupInstance
}

// Group runs incremental O(n·g) clustering in arrival order: each item joins
// the unit-compatible group with the highest similarity at or above the
// threshold (ties to the earliest group), or starts a new group. Order of
// arrival affects the final grouping; re-running on a reordered batch may
// produce a different but internally consistent partition. That is an
// accepted property, not a bug.
//
// Items flagged needs_review carry placeholder names, so they never join an
// existing group and never attract members; each stays a singleton for the
// reviewer to resolve.
func (g *Grouper) Group(items []LineRef) []entity.ProductGroup {
	var groups []*group

	for _, ref := range items {
		inst := entity.GroupInstance{
			InvoiceIndex: ref.InvoiceIndex,
			LineIndex:    ref.LineIndex,
			Quantity:     ref.Item.Quantity,
			Unit:         ref.Item.Unit,
			UnitPrice:    ref.Item.UnitPrice,
			TotalPrice:   ref.Item.TotalPrice,
			VATRate:      ref.Item.VATRate,
			OriginalName: ref.Item.Name,
		}

		if ref.Item.NeedsReview {
			groups = append(groups, newGroup(ref.Item, inst))
			continue
		}

		key := Canonicalize(ref.Item.Name)
		best := -1
		bestScore := 0.0
		for i, grp := range groups {
			// Unit mismatch disqualifies regardless of name similarity.
			if grp.unit != ref.Item.Unit || grp.key == "" {
				continue
			}
			if score := Similarity(key, grp.key); score >= g.Threshold && score > bestScore {
				best, bestScore = i, score
			}
		}

		if best < 0 {
			groups = append(groups, newGroup(ref.Item, inst))
			continue
		}
		groups[best].add(ref.Item.Name, inst)
	}

	out := make([]entity.ProductGroup, len(groups))
	for i, grp := range groups {
		out[i] = entity.ProductGroup{
			DisplayName: grp.display,
			Unit:        grp.unit,
			Instances:   grp.items,
		}
	}
	g.Logger.Info("group.ok", "items", len(items), "groups", len(out))
	return out
}

func newGroup(item entity.NormalizedLineItem, inst entity.GroupInstance) *group {
	grp := &group{unit: item.Unit}
	if item.NeedsReview {
		// Placeholder names are excluded from similarity matching.
		grp.display = item.Name
		grp.items = []entity.GroupInstance{inst}
		return grp
	}
	grp.add(item.Name, inst)
	return grp
}

func (grp *group) add(name string, inst entity.GroupInstance) {
	grp.items = append(grp.items, inst)
	for _, v := range grp.variants {
		if v == name {
			grp.refreshDisplay()
			return
		}
	}
	grp.variants = append(grp.variants, name)
	grp.refreshDisplay()
}

// refreshDisplay picks the shortest clean variant longer than 2 characters
// (ties broken by first occurrence). Shortest-clean-name discards trailing
// OCR noise appended to an otherwise-correct name. When every variant is 2
// characters or shorter, the first one stands.
func (grp *group) refreshDisplay() {
	if len(grp.variants) == 0 {
		return
	}
	best := ""
	bestLen := -1
	for _, v := range grp.variants {
		n := utf8.RuneCountInString(v)
		if n <= 2 {
			continue
		}
		if bestLen == -1 || n < bestLen {
			best, bestLen = v, n
		}
	}
	if best == "" {
		best = grp.variants[0]
	}
	grp.display = best
	grp.key = Canonicalize(best)
}
