package pipeline

import (
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/match"
)

// BatchReview is the reviewer-facing view of a finished batch: per-document
// results plus cross-invoice product groups with catalog suggestions.
type BatchReview struct {
	Results []DocumentResult
	Groups  []entity.ProductGroup
}

// SucceededInvoices returns the normalized invoices in result order.
func (r BatchReview) SucceededInvoices() []entity.NormalizedInvoice {
	var out []entity.NormalizedInvoice
	for _, res := range r.Results {
		if res.Invoice != nil {
			out = append(out, *res.Invoice)
		}
	}
	return out
}

// BuildReview groups line items across every successfully analyzed invoice
// and annotates each group with ranked catalog suggestions. InvoiceIndex in
// the group instances refers to the position within results, so failed
// documents keep their slot and indices stay stable for the reviewer.
func BuildReview(
	results []DocumentResult,
	grouper *match.Grouper,
	matcher *match.Matcher,
	catalog []entity.CatalogProduct,
) BatchReview {
	var refs []match.LineRef
	for invoiceIdx, res := range results {
		if res.Invoice == nil {
			continue
		}
		for lineIdx, item := range res.Invoice.Lines {
			refs = append(refs, match.LineRef{
				InvoiceIndex: invoiceIdx,
				LineIndex:    lineIdx,
				Item:         item,
			})
		}
	}

	groups := grouper.Group(refs)
	for i := range groups {
		groups[i].Suggestions = matcher.SuggestForGroup(groups[i], catalog)
	}
	return BatchReview{Results: results, Groups: groups}
}
