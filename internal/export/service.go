package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-reconciler/internal/pipeline"
)

// Service produces XLSX bytes from a finished batch review: one sheet of
// product groups with catalog suggestions, one sheet of raw invoice lines.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReviewXLSX returns an XLSX workbook (as bytes) for a batch review.
func (s *Service) ExportReviewXLSX(review pipeline.BatchReview) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()

	if err := s.writeGroupsSheet(f, review); err != nil {
		return nil, err
	}
	if err := s.writeLinesSheet(f, review); err != nil {
		return nil, err
	}
	// Drop the default sheet excelize creates.
	_ = f.DeleteSheet("Sheet1")
	if idx, _ := f.GetSheetIndex("Groups"); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"groups", len(review.Groups),
		"invoices", len(review.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeGroupsSheet(f *excelize.File, review pipeline.BatchReview) error {
	const sheet = "Groups"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"Product",
		"Unit",
		"Total Quantity",
		"Occurrences",
		"Name Variants",
		"Top Suggestion",
		"Confidence",
		"Reason",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, grp := range review.Groups {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, grp.DisplayName)
		write(2, string(grp.Unit))
		write(3, grp.TotalQuantity())
		write(4, len(grp.Instances))

		variants := make(map[string]struct{})
		names := ""
		for _, inst := range grp.Instances {
			if _, seen := variants[inst.OriginalName]; seen {
				continue
			}
			variants[inst.OriginalName] = struct{}{}
			if names != "" {
				names += "; "
			}
			names += inst.OriginalName
		}
		write(5, truncate(names, 140))

		if len(grp.Suggestions) > 0 {
			top := grp.Suggestions[0]
			write(6, top.Name)
			write(7, fmt.Sprintf("%.0f%%", top.Confidence*100))
			write(8, top.Reason)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 48)
	_ = f.SetColWidth(sheet, "F", "F", 32)
	_ = f.SetColWidth(sheet, "G", "H", 18)
	return nil
}

func (s *Service) writeLinesSheet(f *excelize.File, review pipeline.BatchReview) error {
	const sheet = "Invoice Lines"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"File",
		"Invoice Number",
		"Date",
		"Vendor",
		"Line",
		"Quantity",
		"Unit",
		"Unit Price",
		"Total",
		"VAT %",
		"Needs Review",
		"Warnings",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, res := range review.Results {
		if res.Invoice == nil {
			continue
		}
		inv := res.Invoice
		warnings := ""
		for i, w := range inv.Warnings {
			if i > 0 {
				warnings += "; "
			}
			warnings += w
		}

		for _, line := range inv.Lines {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, res.Filename)
			write(2, inv.Number)
			write(3, inv.Date)
			write(4, inv.VendorName)
			write(5, line.Name)
			write(6, line.Quantity)
			write(7, string(line.Unit))
			write(8, line.UnitPrice)
			write(9, line.TotalPrice)
			write(10, line.VATRate)
			if line.NeedsReview {
				write(11, "yes")
			}
			write(12, truncate(warnings, 140))
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "D", 18)
	_ = f.SetColWidth(sheet, "E", "E", 32)
	_ = f.SetColWidth(sheet, "F", "K", 12)
	_ = f.SetColWidth(sheet, "L", "L", 48)
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
