package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
)

// NormalizedInvoice is an invoice after field normalization: canonical numbers,
// ISO date, trimmed vendor name. Warnings carry non-fatal findings (sum
// mismatch, unparsable date) that flag the invoice for review without
// blocking the pipeline.
type NormalizedInvoice struct {
	ID           uuid.UUID            `json:"id"`
	DocumentID   uuid.UUID            `json:"document_id"`
	Number       string               `json:"number,omitempty"`
	Date         string               `json:"date"` // YYYY-MM-DD
	VendorName   string               `json:"vendor_name"`
	CurrencyCode string               `json:"currency_code"`
	TotalExclVAT float64              `json:"total_excl_vat"`
	VATAmount    float64              `json:"vat_amount"`
	TotalInclVAT float64              `json:"total_incl_vat"`
	Lines        []NormalizedLineItem `json:"lines"`
	Warnings     []string             `json:"warnings,omitempty"`
	CreatedAt    time.Time            `json:"created_at,omitempty"`
}

// NormalizedLineItem is one product entry on an invoice after normalization.
// NeedsReview is set when the name could not be sanitized to a plausible
// product name and was replaced by a positional placeholder.
type NormalizedLineItem struct {
	Name        string         `json:"name"`
	Quantity    float64        `json:"quantity"`
	Unit        constants.Unit `json:"unit"`
	UnitPrice   float64        `json:"unit_price"`
	TotalPrice  float64        `json:"total_price"`
	VATRate     float64        `json:"vat_rate"`
	NeedsReview bool           `json:"needs_review,omitempty"`
}
