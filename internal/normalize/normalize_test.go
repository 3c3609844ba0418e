package normalize

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1 234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1234.56", 1234.56},
		{"1234", 1234},
		{"12,5", 12.5},
		{"-3,20", -3.2},
		{"  15,00 EUR ", 15},
		{"", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, ParseDecimal(tc.in), 1e-9, "input %q", tc.in)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{"15.03.2024", "2024-03-15", true},
		{"15/03/2024", "2024-03-15", true},
		{"2024.03.15", "2024-03-15", true},
		{"March 15", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	got, ok := SanitizeName("  Pomidorai   slyviniai  ")
	require.True(t, ok)
	assert.Equal(t, "Pomidorai slyviniai", got)

	// Trailing SKU-like token is stripped.
	got, ok = SanitizeName("Agurkai trumpavaisiai AB1234X")
	require.True(t, ok)
	assert.Equal(t, "Agurkai trumpavaisiai", got)

	// Mostly digits is not a plausible product name.
	_, ok = SanitizeName("1234567890 12")
	assert.False(t, ok)

	_, ok = SanitizeName("   ")
	assert.False(t, ok)
}

func TestResolveUnit(t *testing.T) {
	assert.Equal(t, constants.UnitKg, ResolveUnit(nil, "kg", "whatever"))
	assert.Equal(t, constants.UnitL, ResolveUnit(nil, "ltr", "whatever"))
	assert.Equal(t, constants.UnitPcs, ResolveUnit(nil, "vnt", "whatever"))
	// No explicit unit: keyword inference.
	assert.Equal(t, constants.UnitKg, ResolveUnit(defaultUnitRules, "", "Pomidorai slyviniai"))
	assert.Equal(t, constants.UnitL, ResolveUnit(defaultUnitRules, "", "Pienas 2.5%"))
	// Nothing matches: pieces.
	assert.Equal(t, constants.UnitPcs, ResolveUnit(defaultUnitRules, "", "Šluota"))
}

func newTestNormalizer() *Normalizer {
	n := NewNormalizer("EUR", 21.0, slog.Default())
	n.Now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalizeEuropeanFormats(t *testing.T) {
	n := newTestNormalizer()
	raw := &provider.RawInvoice{
		Number:       "INV-1",
		Date:         "15.03.2024",
		VendorName:   " UAB Daržovės ",
		TotalExclVAT: "8,00",
		VATAmount:    "1,68",
		TotalInclVAT: "9,68",
		Lines: []provider.RawLineItem{
			{Name: "Pomidorai", Quantity: "2,5", Unit: "kg", UnitPrice: "3,20", TotalPrice: "8,00", VATRate: "21"},
		},
	}

	inv := n.Normalize(uuid.New(), raw)
	assert.Equal(t, "2024-03-15", inv.Date)
	assert.Equal(t, "UAB Daržovės", inv.VendorName)
	assert.Equal(t, "EUR", inv.CurrencyCode)
	assert.InDelta(t, 8.00, inv.TotalExclVAT, 1e-9)
	assert.InDelta(t, 9.68, inv.TotalInclVAT, 1e-9)
	require.Len(t, inv.Lines, 1)
	assert.InDelta(t, 2.5, inv.Lines[0].Quantity, 1e-9)
	assert.Equal(t, constants.UnitKg, inv.Lines[0].Unit)
	assert.Empty(t, inv.Warnings)
}

func TestNormalizeDateFallback(t *testing.T) {
	n := newTestNormalizer()
	inv := n.Normalize(uuid.New(), &provider.RawInvoice{Date: "sometime in march"})
	assert.Equal(t, "2024-03-15", inv.Date)
}

func TestNormalizeSumMismatchWarning(t *testing.T) {
	n := newTestNormalizer()
	raw := &provider.RawInvoice{
		Date: "2024-03-15",
		Lines: []provider.RawLineItem{
			// 3 x 2.00 = 6.00 but total says 7.50
			{Name: "Agurkai", Quantity: "3", Unit: "kg", UnitPrice: "2,00", TotalPrice: "7,50"},
		},
	}
	inv := n.Normalize(uuid.New(), raw)
	require.Len(t, inv.Lines, 1)
	// Extracted values stay untouched; mismatch only flags the invoice.
	assert.InDelta(t, 7.5, inv.Lines[0].TotalPrice, 1e-9)
	assert.NotEmpty(t, inv.Warnings)
}

func TestNormalizeBadNameGetsPlaceholder(t *testing.T) {
	n := newTestNormalizer()
	raw := &provider.RawInvoice{
		Date: "2024-03-15",
		Lines: []provider.RawLineItem{
			{Name: "4815162342 99", Quantity: "1", UnitPrice: "2,00", TotalPrice: "2,00"},
			{Name: "Morkos", Quantity: "1", Unit: "kg", UnitPrice: "1,00", TotalPrice: "1,00"},
		},
	}
	inv := n.Normalize(uuid.New(), raw)
	require.Len(t, inv.Lines, 2)
	assert.True(t, inv.Lines[0].NeedsReview)
	assert.Equal(t, "Line item 1", inv.Lines[0].Name)
	assert.False(t, inv.Lines[1].NeedsReview)
}

func TestNormalizeDefaultVATAndDerivedTotals(t *testing.T) {
	n := newTestNormalizer()
	raw := &provider.RawInvoice{
		Date:         "2024-03-15",
		TotalInclVAT: "121,00",
		VATAmount:    "21,00",
		Lines: []provider.RawLineItem{
			{Name: "Aliejus", Quantity: "2", UnitPrice: "5,00"},
		},
	}
	inv := n.Normalize(uuid.New(), raw)
	// Missing excl total is derived from incl - vat.
	assert.InDelta(t, 100.0, inv.TotalExclVAT, 1e-9)
	require.Len(t, inv.Lines, 1)
	assert.InDelta(t, 21.0, inv.Lines[0].VATRate, 1e-9)
	// Missing line total is derived from qty * unit price.
	assert.InDelta(t, 10.0, inv.Lines[0].TotalPrice, 1e-9)
}
