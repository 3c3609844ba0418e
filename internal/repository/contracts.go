package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// ProductRepository manages the product catalog.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]entity.CatalogProduct, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.CatalogProduct, error)
	CreateProduct(ctx context.Context, p *entity.CatalogProduct) error
	// AdjustQuantity applies a signed stock delta and returns the new level.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta float64) (float64, error)
}

// PriceRepository manages per-supplier prices. At most one price row exists
// per (product, supplier) pair, and at most one row per product is preferred.
type PriceRepository interface {
	ListPrices(ctx context.Context, productID uuid.UUID) ([]entity.SupplierPrice, error)
	// Upsert inserts or refreshes a supplier's price for a product. The first
	// price a product ever gets becomes preferred automatically; later ones
	// never steal the flag.
	Upsert(ctx context.Context, price *entity.SupplierPrice) error
	// SetPreferred atomically moves the preferred flag to the given price.
	// Idempotent: re-preferring the current preferred price is a no-op.
	SetPreferred(ctx context.Context, productID, priceID uuid.UUID) error
}

// InvoiceRepository persists normalized invoices and their line items.
type InvoiceRepository interface {
	SaveInvoice(ctx context.Context, inv *entity.NormalizedInvoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*entity.NormalizedInvoice, error)
	ListInvoices(ctx context.Context, limit int) ([]entity.NormalizedInvoice, error)
}
