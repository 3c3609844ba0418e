package provider

import (
	"context"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// RawInvoice is the single canonical shape every provider adapter decodes
// into. Values stay loosely typed (numbers may arrive as locale-formatted
// strings); the normalizer owns coercion.
type RawInvoice struct {
	Number       string        `json:"invoice_number,omitempty"`
	Date         string        `json:"invoice_date,omitempty"`
	VendorName   string        `json:"vendor_name,omitempty"`
	CurrencyCode string        `json:"currency_code,omitempty"`
	TotalExclVAT string        `json:"total_excl_vat,omitempty"`
	VATAmount    string        `json:"vat_amount,omitempty"`
	TotalInclVAT string        `json:"total_incl_vat,omitempty"`
	Lines        []RawLineItem `json:"line_items"`
}

// RawLineItem is one extracted line, values as the provider returned them.
type RawLineItem struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity,omitempty"`
	Unit       string `json:"unit,omitempty"`
	UnitPrice  string `json:"unit_price,omitempty"`
	TotalPrice string `json:"total_price,omitempty"`
	VATRate    string `json:"vat_rate,omitempty"`
}

// Submission is the result of handing a document to a provider.
// Synchronous providers return the invoice directly (Invoice != nil, zero
// polling); asynchronous ones return an operation handle to poll.
type Submission struct {
	Handle  string
	Invoice *RawInvoice
}

// PollResult is one poll of an asynchronous operation. Invoice is set only
// when Status is SUCCEEDED; Message carries the provider-side failure reason
// when Status is FAILED.
type PollResult struct {
	Status  constants.AnalysisStatus
	Invoice *RawInvoice
	Message string
}

// Provider converts a document image into structured invoice fields,
// asynchronously, fallibly, under quota. Errors follow the common taxonomy:
// rate-limit and transient failures are retriable, malformed responses are not.
type Provider interface {
	Name() string
	Submit(ctx context.Context, doc entity.Document) (Submission, error)
	Poll(ctx context.Context, handle string) (PollResult, error)
}
