package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// warningSep joins warnings into one column. Warnings are short operator
// messages; a newline never appears in them.
const warningSep = "\n"

const invoiceColumns = "id, document_id, number, invoice_date, vendor_name, currency_code, total_excl_vat, vat_amount, total_incl_vat, warnings, created_at"

func (s *Store) SaveInvoice(ctx context.Context, inv *entity.NormalizedInvoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning invoice transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, document_id, number, invoice_date, vendor_name, currency_code, total_excl_vat, vat_amount, total_incl_vat, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID.String(), inv.DocumentID.String(), inv.Number, inv.Date, inv.VendorName,
		inv.CurrencyCode, inv.TotalExclVAT, inv.VATAmount, inv.TotalInclVAT,
		strings.Join(inv.Warnings, warningSep), inv.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}

	for i, line := range inv.Lines {
		needsReview := 0
		if line.NeedsReview {
			needsReview = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (invoice_id, line_index, name, quantity, unit, unit_price, total_price, vat_rate, needs_review)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			inv.ID.String(), i, line.Name, line.Quantity, string(line.Unit),
			line.UnitPrice, line.TotalPrice, line.VATRate, needsReview,
		)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing invoice: %w", err)
	}
	s.logger.Info("repo.invoice.saved", "invoice_id", inv.ID, "lines", len(inv.Lines))
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.NormalizedInvoice, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id.String())
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = s.loadLines(ctx, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, limit int) ([]entity.NormalizedInvoice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var out []entity.NormalizedInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Lines, err = s.loadLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadLines(ctx context.Context, invoiceID uuid.UUID) ([]entity.NormalizedLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, quantity, unit, unit_price, total_price, vat_rate, needs_review
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_index ASC`, invoiceID.String())
	if err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.NormalizedLineItem
	for rows.Next() {
		var l entity.NormalizedLineItem
		var unit string
		var needsReview int
		if err := rows.Scan(&l.Name, &l.Quantity, &unit, &l.UnitPrice, &l.TotalPrice, &l.VATRate, &needsReview); err != nil {
			return nil, err
		}
		l.Unit = constants.Unit(unit)
		l.NeedsReview = needsReview != 0
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanInvoice(row rowScanner) (entity.NormalizedInvoice, error) {
	var inv entity.NormalizedInvoice
	var id, documentID, warnings, createdAt string

	if err := row.Scan(&id, &documentID, &inv.Number, &inv.Date, &inv.VendorName,
		&inv.CurrencyCode, &inv.TotalExclVAT, &inv.VATAmount, &inv.TotalInclVAT,
		&warnings, &createdAt); err != nil {
		return entity.NormalizedInvoice{}, err
	}

	var err error
	if inv.ID, err = uuid.Parse(id); err != nil {
		return entity.NormalizedInvoice{}, fmt.Errorf("parsing invoice id %q: %w", id, err)
	}
	if inv.DocumentID, err = uuid.Parse(documentID); err != nil {
		return entity.NormalizedInvoice{}, fmt.Errorf("parsing document id %q: %w", documentID, err)
	}
	if warnings != "" {
		inv.Warnings = strings.Split(warnings, warningSep)
	}
	if inv.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return entity.NormalizedInvoice{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return inv, nil
}
