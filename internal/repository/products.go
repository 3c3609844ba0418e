package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

const productColumns = "id, name, sku, unit, quantity, min_stock, created_at, updated_at"

func (s *Store) ListProducts(ctx context.Context) ([]entity.CatalogProduct, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var out []entity.CatalogProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*entity.CatalogProduct, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id.String())
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", common.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *entity.CatalogProduct) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	var minStock sql.NullFloat64
	if p.MinStock != nil {
		minStock = sql.NullFloat64{Float64: *p.MinStock, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, unit, quantity, min_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID.String(), p.Name, p.SKU, string(p.Unit), p.Quantity, minStock,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

// AdjustQuantity applies a signed stock delta and returns the new level.
func (s *Store) AdjustQuantity(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + $1, updated_at = $2 WHERE id = $3",
		delta, now, id.String())
	if err != nil {
		return 0, fmt.Errorf("adjusting quantity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: product %s", common.ErrProductNotFound, id)
	}

	var qty float64
	if err := s.db.QueryRowContext(ctx,
		"SELECT quantity FROM products WHERE id = $1", id.String()).Scan(&qty); err != nil {
		return 0, fmt.Errorf("reading quantity: %w", err)
	}
	return qty, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.CatalogProduct, error) {
	var p entity.CatalogProduct
	var id, unit, createdAt, updatedAt string
	var minStock sql.NullFloat64

	if err := row.Scan(&id, &p.Name, &p.SKU, &unit, &p.Quantity, &minStock, &createdAt, &updatedAt); err != nil {
		return entity.CatalogProduct{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return entity.CatalogProduct{}, fmt.Errorf("parsing product id %q: %w", id, err)
	}
	p.ID = parsed
	p.Unit = constants.Unit(unit)
	if minStock.Valid {
		v := minStock.Float64
		p.MinStock = &v
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return entity.CatalogProduct{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return entity.CatalogProduct{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}
