package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
)

// sumTolerance is the absolute discrepancy (in currency units) we accept
// between the line-item sum and the invoice's tax-exclusive total before
// emitting a warning.
const sumTolerance = 0.02

var reCurrency = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Normalizer coerces a provider's raw invoice into canonical types.
// Parsing failures never propagate as errors — they degrade to defaults plus
// a needs_review flag or a warning string.
type Normalizer struct {
	DefaultCurrency string
	DefaultVATRate  float64
	UnitRules       []UnitRule
	Logger          *slog.Logger

	// Now is the clock used for the unparsable-date fallback; tests pin it.
	Now func() time.Time
}

func NewNormalizer(defaultCurrency string, defaultVATRate float64, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		DefaultCurrency: defaultCurrency,
		DefaultVATRate:  defaultVATRate,
		Logger:          logger,
		Now:             time.Now,
	}
}

// Normalize converts raw extracted fields into a NormalizedInvoice.
func (n *Normalizer) Normalize(documentID uuid.UUID, raw *provider.RawInvoice) entity.NormalizedInvoice {
	inv := entity.NormalizedInvoice{
		ID:         uuid.New(),
		DocumentID: documentID,
		Number:     strings.TrimSpace(raw.Number),
		VendorName: collapseSpaces(raw.VendorName),
	}

	if date, ok := ParseDate(raw.Date); ok {
		inv.Date = date
	} else {
		// Missing/garbled date is not fatal; use the processing date and let
		// the review step decide.
		inv.Date = n.Now().Format("2006-01-02")
	}

	cc := strings.ToUpper(strings.TrimSpace(raw.CurrencyCode))
	if reCurrency.MatchString(cc) {
		inv.CurrencyCode = cc
	} else {
		inv.CurrencyCode = n.DefaultCurrency
	}

	inv.TotalExclVAT = round2(ParseDecimal(raw.TotalExclVAT))
	inv.VATAmount = round2(ParseDecimal(raw.VATAmount))
	inv.TotalInclVAT = round2(ParseDecimal(raw.TotalInclVAT))
	if inv.TotalExclVAT == 0 && inv.TotalInclVAT != 0 {
		inv.TotalExclVAT = round2(inv.TotalInclVAT - inv.VATAmount)
	}

	inv.Lines = make([]entity.NormalizedLineItem, 0, len(raw.Lines))
	for i, rl := range raw.Lines {
		inv.Lines = append(inv.Lines, n.normalizeLine(i, rl))
	}

	if w := n.checkLineSum(inv); w != "" {
		inv.Warnings = append(inv.Warnings, w)
	}

	n.Logger.Info("normalize.ok",
		"document_id", documentID,
		"vendor", inv.VendorName,
		"lines", len(inv.Lines),
		"warnings", len(inv.Warnings),
	)
	return inv
}

func (n *Normalizer) normalizeLine(index int, rl provider.RawLineItem) entity.NormalizedLineItem {
	item := entity.NormalizedLineItem{
		Quantity:   ParseDecimal(rl.Quantity),
		UnitPrice:  round2(ParseDecimal(rl.UnitPrice)),
		TotalPrice: round2(ParseDecimal(rl.TotalPrice)),
		VATRate:    ParseDecimal(rl.VATRate),
	}

	name, ok := SanitizeName(rl.Name)
	if ok {
		item.Name = name
	} else {
		item.Name = fmt.Sprintf("Line item %d", index+1)
		item.NeedsReview = true
	}

	item.Unit = ResolveUnit(n.UnitRules, rl.Unit, item.Name)

	if item.VATRate == 0 && rl.VATRate == "" {
		item.VATRate = n.DefaultVATRate
	}
	if item.TotalPrice == 0 && item.Quantity != 0 && item.UnitPrice != 0 {
		item.TotalPrice = round2(item.Quantity * item.UnitPrice)
	}
	return item
}

// checkLineSum compares the line-item sum against the tax-exclusive total.
// A discrepancy is a warning, never an error: the invoice stays reviewable.
func (n *Normalizer) checkLineSum(inv entity.NormalizedInvoice) string {
	if inv.TotalExclVAT == 0 || len(inv.Lines) == 0 {
		return ""
	}
	var sum float64
	for _, ln := range inv.Lines {
		sum += ln.TotalPrice
	}
	sum = round2(sum)
	if diff := math.Abs(sum - inv.TotalExclVAT); diff > sumTolerance {
		n.Logger.Warn("normalize.sum_mismatch",
			"document_id", inv.DocumentID,
			"line_sum", sum,
			"total_excl_vat", inv.TotalExclVAT,
		)
		return fmt.Sprintf("line items sum %.2f differs from invoice total %.2f", sum, inv.TotalExclVAT)
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
