package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
)

// CatalogProduct represents a product already known to the catalog.
type CatalogProduct struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	SKU       string         `json:"sku,omitempty"`
	Unit      constants.Unit `json:"unit"`
	Quantity  float64        `json:"quantity"` // quantity on hand
	MinStock  *float64       `json:"min_stock,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// SupplierPrice is one supplier's price for a product. At most one price per
// product may be preferred at any time; the repository owns that invariant.
type SupplierPrice struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	PriceExclVAT float64   `json:"price_excl_vat"`
	PriceInclVAT float64   `json:"price_incl_vat"`
	CurrencyCode string    `json:"currency_code"`
	Preferred    bool      `json:"preferred"`
	LastUpdated  time.Time `json:"last_updated"`
}
