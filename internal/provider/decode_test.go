package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
)

func TestDecodeFlatSnakeCase(t *testing.T) {
	raw := []byte(`{
		"invoice_number": "SF-2024-001",
		"invoice_date": "15.03.2024",
		"vendor_name": "UAB Tiekėjas",
		"currency_code": "EUR",
		"total_incl_vat": 9.68,
		"line_items": [
			{"name": "Pomidorai", "quantity": "2,5", "unit": "kg", "unit_price": "3,20", "total_price": "8,00"}
		]
	}`)

	inv, err := DecodeRawInvoice(raw)
	require.NoError(t, err)
	assert.Equal(t, "SF-2024-001", inv.Number)
	assert.Equal(t, "UAB Tiekėjas", inv.VendorName)
	assert.Equal(t, "9.68", inv.TotalInclVAT)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "2,5", inv.Lines[0].Quantity)
}

func TestDecodeEnvelopedValueObjects(t *testing.T) {
	raw := []byte(`{
		"analyzeResult": {
			"vendorName": {"valueString": "UAB Sandėlys"},
			"invoiceTotal": {"valueCurrency": {"amount": 12.1}},
			"items": {
				"valueArray": [
					{"valueObject": {
						"description": {"content": "Agurkai"},
						"quantity": {"valueNumber": 4},
						"unitPrice": {"content": "1,10"}
					}}
				]
			}
		}
	}`)

	inv, err := DecodeRawInvoice(raw)
	require.NoError(t, err)
	assert.Equal(t, "UAB Sandėlys", inv.VendorName)
	assert.Equal(t, "12.1", inv.TotalInclVAT)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Agurkai", inv.Lines[0].Name)
	assert.Equal(t, "4", inv.Lines[0].Quantity)
	assert.Equal(t, "1,10", inv.Lines[0].UnitPrice)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeRawInvoice([]byte("not json at all"))
	assert.ErrorIs(t, err, common.ErrMalformedResponse)

	// Valid JSON with nothing invoice-shaped in it.
	_, err = DecodeRawInvoice([]byte(`{"status": "ok", "elapsed_ms": 120}`))
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestSanitizeRenamesAndCoerces(t *testing.T) {
	raw := []byte(`{
		"supplier": "UAB Tiekėjas",
		"number": "SF-1",
		"date": "2024-03-15",
		"currency": " eur ",
		"subtotal": 8,
		"tax": null,
		"items": [
			{"name": "Pomidorai", "quantity": 2.5, "unit_price": "3,20"},
			{"name": "   ", "quantity": 1}
		]
	}`)

	out, dropped, err := SanitizeInvoiceJSON(raw, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	inv, err := DecodeRawInvoice(out)
	require.NoError(t, err)
	assert.Equal(t, "UAB Tiekėjas", inv.VendorName)
	assert.Equal(t, "SF-1", inv.Number)
	assert.Equal(t, "EUR", inv.CurrencyCode)
	assert.Equal(t, "8", inv.TotalExclVAT)
	assert.Empty(t, inv.VATAmount)
	// Nameless lines survive sanitization so the normalizer can flag them.
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, "2.5", inv.Lines[0].Quantity)
}
