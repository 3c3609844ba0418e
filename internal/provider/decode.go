package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
)

// DecodeRawInvoice translates one provider payload into the canonical
// RawInvoice shape. Providers disagree about almost everything: scalar fields
// may be wrapped as {"value": ...} or {"content": ...}, line items may live
// under "line_items", "items", "values" or "valueArray", and numbers arrive as
// numbers or locale-formatted strings. All of that shape knowledge stays here.
//
// Unparsable JSON or a payload without any recognizable invoice fields is a
// contract mismatch and is reported as ErrMalformedResponse (never retried).
func DecodeRawInvoice(raw []byte) (*RawInvoice, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", common.ErrMalformedResponse, err)
	}

	// Some providers nest the document under an envelope.
	for _, k := range []string{"invoice", "document", "result", "analyzeResult"} {
		if inner, ok := m[k].(map[string]any); ok {
			m = inner
			break
		}
	}

	inv := &RawInvoice{
		Number:       looseString(pick(m, "invoice_number", "invoiceNumber", "number", "invoice_id")),
		Date:         looseString(pick(m, "invoice_date", "invoiceDate", "date")),
		VendorName:   looseString(pick(m, "vendor_name", "vendorName", "vendor", "supplier", "supplier_name", "merchant_name")),
		CurrencyCode: looseString(pick(m, "currency_code", "currencyCode", "currency")),
		TotalExclVAT: looseString(pick(m, "total_excl_vat", "subtotal", "subTotal", "net_total", "totalWithoutTax")),
		VATAmount:    looseString(pick(m, "vat_amount", "tax", "total_tax", "totalTax")),
		TotalInclVAT: looseString(pick(m, "total_incl_vat", "total", "invoice_total", "invoiceTotal", "grand_total")),
	}

	lines, ok := pickLines(m)
	if !ok && inv.VendorName == "" && inv.TotalInclVAT == "" && inv.Number == "" {
		return nil, fmt.Errorf("%w: no recognizable invoice fields", common.ErrMalformedResponse)
	}
	for _, ln := range lines {
		lm, ok := unwrapObject(ln)
		if !ok {
			continue
		}
		inv.Lines = append(inv.Lines, RawLineItem{
			Name:       looseString(pick(lm, "name", "description", "product_name", "productName", "item")),
			Quantity:   looseString(pick(lm, "quantity", "qty", "count")),
			Unit:       looseString(pick(lm, "unit", "uom", "unit_of_measure", "measure")),
			UnitPrice:  looseString(pick(lm, "unit_price", "unitPrice", "price")),
			TotalPrice: looseString(pick(lm, "total_price", "totalPrice", "total", "amount", "line_total")),
			VATRate:    looseString(pick(lm, "vat_rate", "vatRate", "tax_rate", "taxRate", "vat")),
		})
	}
	return inv, nil
}

// pick returns the first present key, unwrapping one level of value envelope.
func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// pickLines finds the line-item array under any of its known names. Arrays of
// wrapped objects ({"valueObject": {...}}) are unwrapped per element.
func pickLines(m map[string]any) ([]any, bool) {
	for _, k := range []string{"line_items", "lineItems", "items", "lines", "values", "valueArray"} {
		switch v := m[k].(type) {
		case []any:
			return v, true
		case map[string]any:
			// one more level of wrapping: {"line_items": {"values": [...]}}
			if arr, ok := pickLines(v); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// unwrapObject peels value envelopes off a line-item element.
func unwrapObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range []string{"valueObject", "value", "content", "fields", "properties"} {
		if inner, ok := m[k].(map[string]any); ok {
			return inner, true
		}
	}
	return m, true
}

// looseString renders a loosely-typed provider value as its string form.
// Objects are unwrapped through their value/content envelope recursively;
// anything unrecognized becomes "" (the normalizer degrades from there).
func looseString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case map[string]any:
		for _, k := range []string{"value", "content", "text", "valueString", "valueNumber", "valueCurrency", "amount"} {
			if inner, ok := t[k]; ok && inner != nil {
				return looseString(inner)
			}
		}
		return ""
	default:
		return ""
	}
}
