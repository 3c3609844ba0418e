package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

const priceColumns = "id, product_id, supplier_id, price_excl_vat, price_incl_vat, currency_code, preferred, last_updated"

func (s *Store) ListPrices(ctx context.Context, productID uuid.UUID) ([]entity.SupplierPrice, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+priceColumns+" FROM supplier_prices WHERE product_id = $1 ORDER BY preferred DESC, last_updated DESC",
		productID.String())
	if err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}
	defer rows.Close()

	var out []entity.SupplierPrice
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert inserts or refreshes one supplier's price for a product. A product's
// first price becomes preferred. An upsert carrying Preferred=true moves the
// preferred flag to this supplier inside the same transaction (demote all,
// then promote); otherwise the flag stays wherever it already sits.
func (s *Store) Upsert(ctx context.Context, price *entity.SupplierPrice) error {
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	if price.LastUpdated.IsZero() {
		price.LastUpdated = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE id = $1", price.ProductID.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking product: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: product %s", common.ErrProductNotFound, price.ProductID)
	}

	var priceCount int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM supplier_prices WHERE product_id = $1", price.ProductID.String()).Scan(&priceCount)
	if err != nil {
		return fmt.Errorf("counting prices: %w", err)
	}
	preferred := 0
	if priceCount == 0 {
		preferred = 1
		price.Preferred = true
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO supplier_prices (id, product_id, supplier_id, price_excl_vat, price_incl_vat, currency_code, preferred, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, supplier_id) DO UPDATE SET
			price_excl_vat = excluded.price_excl_vat,
			price_incl_vat = excluded.price_incl_vat,
			currency_code = excluded.currency_code,
			last_updated = excluded.last_updated`,
		price.ID.String(), price.ProductID.String(), price.SupplierID.String(),
		price.PriceExclVAT, price.PriceInclVAT, price.CurrencyCode, preferred,
		price.LastUpdated.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting price: %w", err)
	}

	// Explicit request to prefer this supplier. The conflict target is
	// (product_id, supplier_id), so the promote matches on supplier rather
	// than on the possibly-discarded new row id.
	if price.Preferred && priceCount > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE supplier_prices SET preferred = 0 WHERE product_id = $1",
			price.ProductID.String()); err != nil {
			return fmt.Errorf("demoting prices: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE supplier_prices SET preferred = 1 WHERE product_id = $1 AND supplier_id = $2",
			price.ProductID.String(), price.SupplierID.String()); err != nil {
			return fmt.Errorf("promoting price: %w", err)
		}
	}
	return tx.Commit()
}

// SetPreferred moves the preferred flag to the given price in one
// transaction: demote every price of the product, then promote the target.
// Re-preferring the current preferred price is a no-op that still succeeds.
// A product that is missing or has no prices at all reports ProductNotFound.
func (s *Store) SetPreferred(ctx context.Context, productID, priceID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning preferred transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE id = $1", productID.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking product: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: product %s", common.ErrProductNotFound, productID)
	}

	var priceCount int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM supplier_prices WHERE product_id = $1", productID.String()).Scan(&priceCount)
	if err != nil {
		return fmt.Errorf("counting prices: %w", err)
	}
	if priceCount == 0 {
		return fmt.Errorf("%w: product %s has no prices", common.ErrProductNotFound, productID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE supplier_prices SET preferred = 0 WHERE product_id = $1", productID.String()); err != nil {
		return fmt.Errorf("demoting prices: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE supplier_prices SET preferred = 1 WHERE id = $1 AND product_id = $2",
		priceID.String(), productID.String())
	if err != nil {
		return fmt.Errorf("promoting price: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Roll back the demotion too; a bad price id must not leave the
		// product with no preferred price.
		return fmt.Errorf("%w: price %s for product %s", common.ErrNotFound, priceID, productID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferred change: %w", err)
	}
	s.logger.Info("repo.price.preferred", "product_id", productID, "price_id", priceID)
	return nil
}

func scanPrice(row rowScanner) (entity.SupplierPrice, error) {
	var p entity.SupplierPrice
	var id, productID, supplierID, lastUpdated string
	var preferred int

	if err := row.Scan(&id, &productID, &supplierID, &p.PriceExclVAT, &p.PriceInclVAT,
		&p.CurrencyCode, &preferred, &lastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.SupplierPrice{}, common.ErrNotFound
		}
		return entity.SupplierPrice{}, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return entity.SupplierPrice{}, fmt.Errorf("parsing price id %q: %w", id, err)
	}
	if p.ProductID, err = uuid.Parse(productID); err != nil {
		return entity.SupplierPrice{}, fmt.Errorf("parsing product id %q: %w", productID, err)
	}
	if p.SupplierID, err = uuid.Parse(supplierID); err != nil {
		return entity.SupplierPrice{}, fmt.Errorf("parsing supplier id %q: %w", supplierID, err)
	}
	p.Preferred = preferred != 0
	if p.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
		return entity.SupplierPrice{}, fmt.Errorf("parsing last_updated: %w", err)
	}
	return p, nil
}
