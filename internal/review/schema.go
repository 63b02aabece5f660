package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
)

// editValueSchema constrains the typed-value payload accepted by the edit
// operation, so malformed reviewer input is rejected before it can reach
// reconciliation.
var editValueSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"kind": map[string]any{"enum": []any{"string", "number", "date", "enum"}},
		"str":  map[string]any{"type": "string"},
		"num":  map[string]any{"type": []any{"string", "number"}},
		"date": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"enum": map[string]any{"type": "string"},
	},
	"required": []any{"kind"},
}

var compiledEditSchema = mustCompile(editValueSchema)

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("edit_value.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	schema, err := compiler.Compile("edit_value.json")
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// ParseValue validates a raw edit payload against the value schema and
// converts it into a typed Value.
func ParseValue(data []byte) (fields.Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fields.Value{}, fmt.Errorf("unmarshal value (%v): %w", err, common.ErrValidation)
	}
	if err := compiledEditSchema.Validate(v); err != nil {
		return fields.Value{}, fmt.Errorf("value does not match schema (%v): %w", err, common.ErrValidation)
	}

	obj := v.(map[string]any)
	kind, _ := obj["kind"].(string)
	switch fields.ValueKind(kind) {
	case fields.KindString:
		s, _ := obj["str"].(string)
		return fields.StringValue(s), nil
	case fields.KindEnum:
		s, _ := obj["enum"].(string)
		return fields.EnumValue(s), nil
	case fields.KindDate:
		s, _ := obj["date"].(string)
		t, ok := parseISODate(s)
		if !ok {
			return fields.Value{}, fmt.Errorf("invalid date %q: %w", s, common.ErrValidation)
		}
		return fields.DateValue(t), nil
	case fields.KindNumber:
		switch n := obj["num"].(type) {
		case string:
			d, err := decimal.NewFromString(n)
			if err != nil {
				return fields.Value{}, fmt.Errorf("invalid number %q (%v): %w", n, err, common.ErrValidation)
			}
			return fields.NumberValue(d), nil
		case float64:
			return fields.NumberValue(decimal.NewFromFloat(n)), nil
		default:
			return fields.Value{}, fmt.Errorf("number value requires num: %w", common.ErrValidation)
		}
	default:
		return fields.Value{}, fmt.Errorf("unknown value kind %q: %w", kind, common.ErrValidation)
	}
}

func parseISODate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}
