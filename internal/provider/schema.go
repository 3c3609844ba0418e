package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to chat-style providers as a structured output constraint and also use
// it locally to validate what came back.
func BuildInvoiceJSONSchema() map[string]any {
	lineProps := map[string]any{
		"name":        map[string]any{"type": "string"},
		"quantity":    looseNumberProp(),
		"unit":        map[string]any{"type": "string"},
		"unit_price":  looseNumberProp(),
		"total_price": looseNumberProp(),
		"vat_rate":    looseNumberProp(),
	}

	props := map[string]any{
		"invoice_number": map[string]any{"type": "string"},
		"invoice_date":   map[string]any{"type": "string"},
		"vendor_name":    map[string]any{"type": "string"},
		"currency_code":  map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"total_excl_vat": looseNumberProp(),
		"vat_amount":     looseNumberProp(),
		"total_incl_vat": looseNumberProp(),
		"line_items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
				"properties":           lineProps,
				"required":             []string{"name"},
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
		"required":             []string{"vendor_name", "line_items"},
	}
}

// looseNumberProp accepts numbers as JSON numbers or as (possibly
// locale-formatted) strings; coercion happens in the normalizer.
func looseNumberProp() map[string]any {
	return map[string]any{
		"anyOf": []map[string]any{
			{"type": "number"},
			{"type": "string"},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
