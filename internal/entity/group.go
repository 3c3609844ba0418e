package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
)

// GroupInstance points back at one line item that was folded into a group.
type GroupInstance struct {
	InvoiceIndex int            `json:"invoice_index"`
	LineIndex    int            `json:"line_index"`
	Quantity     float64        `json:"quantity"`
	Unit         constants.Unit `json:"unit"`
	UnitPrice    float64        `json:"unit_price"`
	TotalPrice   float64        `json:"total_price"`
	VATRate      float64        `json:"vat_rate"`
	OriginalName string         `json:"original_name"`
}

// ProductGroup clusters line items (possibly from different invoices) believed
// to refer to the same physical product. Built fresh per batch; it is the unit
// of human review before anything is committed to the catalog.
type ProductGroup struct {
	DisplayName string              `json:"display_name"`
	Unit        constants.Unit      `json:"unit"`
	Instances   []GroupInstance     `json:"instances"`
	Suggestions []CatalogSuggestion `json:"suggestions,omitempty"`
}

// TotalQuantity sums the quantity across all instances.
func (g ProductGroup) TotalQuantity() float64 {
	var sum float64
	for _, in := range g.Instances {
		sum += in.Quantity
	}
	return sum
}

// CatalogSuggestion is an advisory match against an existing catalog product.
// The pipeline never auto-commits a suggestion; a downstream approval step
// decides match/create/skip per group.
type CatalogSuggestion struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}
