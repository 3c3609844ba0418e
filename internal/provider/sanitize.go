package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// SanitizeInvoiceJSON
// - Renames known synonyms (subtotal -> total_excl_vat, items -> line_items)
// - Drops null/empty optionals
// - Coerces numeric -> string for money-ish fields
// so a sloppy-but-salvageable payload can still pass schema validation.
func SanitizeInvoiceJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	renamed("subtotal", "total_excl_vat")
	renamed("net_total", "total_excl_vat")
	renamed("tax", "vat_amount")
	renamed("total_tax", "vat_amount")
	renamed("total", "total_incl_vat")
	renamed("grand_total", "total_incl_vat")
	renamed("supplier", "vendor_name")
	renamed("supplier_name", "vendor_name")
	renamed("merchant_name", "vendor_name")
	renamed("currency", "currency_code")
	renamed("number", "invoice_number")
	renamed("date", "invoice_date")
	renamed("items", "line_items")
	renamed("lines", "line_items")

	// 2) drop null / "" optionals; coerce money fields to strings
	moneyFields := []string{"total_excl_vat", "vat_amount", "total_incl_vat"}
	for _, k := range moneyFields {
		coerceLooseNumber(m, k, &dropped)
	}

	// 3) currency normalization (ISO-4217-ish casing)
	if v, ok := m["currency_code"].(string); ok {
		cc := strings.ToUpper(strings.TrimSpace(v))
		if cc != "" {
			m["currency_code"] = cc
		} else {
			delete(m, "currency_code")
			dropped = append(dropped, "currency_code(empty)")
		}
	}

	// 4) line items: coerce per-line numerics, drop entries without a name
	if arr, ok := m["line_items"].([]any); ok {
		kept := make([]any, 0, len(arr))
		for i, el := range arr {
			lm, ok := el.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("line_items[%d](type)", i))
				continue
			}
			for _, k := range []string{"quantity", "unit_price", "total_price", "vat_rate"} {
				coerceLooseNumber(lm, k, &dropped)
			}
			if name, _ := lm["name"].(string); strings.TrimSpace(name) == "" {
				// keep the line; the normalizer will flag it for review
				lm["name"] = ""
			}
			kept = append(kept, lm)
		}
		m["line_items"] = kept
	}

	// 5) trim obvious strings
	for _, k := range []string{"vendor_name", "invoice_number", "invoice_date"} {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("provider.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func coerceLooseNumber(m map[string]any, k string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		m[k] = fmt.Sprintf("%g", t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			*dropped = append(*dropped, k+"(empty)")
		} else {
			m[k] = s
		}
	case nil:
		delete(m, k)
		*dropped = append(*dropped, k+"(null)")
	default:
		// unexpected type -> drop
		delete(m, k)
		*dropped = append(*dropped, k+"(type)")
	}
}
