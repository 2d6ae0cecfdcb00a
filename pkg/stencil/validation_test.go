package stencil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

func validationFailures(result ValidationResult) []string {
	out := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		out = append(out, e.VariableName+":"+e.ErrorType)
	}
	return out
}

func TestValidate(t *testing.T) {
	lineItems := VariableDefinition{
		Name:       "lines",
		Type:       "array",
		MinItems:   IntPtr(1),
		MaxItems:   IntPtr(2),
		ItemSchema: []VariableDefinition{{Name: "sku", Type: "string", Required: true}},
	}
	address := VariableDefinition{
		Name:       "addr",
		Type:       "Object",
		Properties: []VariableDefinition{{Name: "city", Type: "string", Required: true}},
	}

	tests := []struct {
		name string
		def  VariableDefinition
		val  value.Value
		want []string
	}{
		{"required missing", VariableDefinition{Name: "name", Type: "string", Required: true}, value.Undefined, []string{"name:required"}},
		{"required blank", VariableDefinition{Name: "name", Type: "string", Required: true}, value.Text("  "), []string{"name:required"}},
		{"required null", VariableDefinition{Name: "name", Type: "string", Required: true}, value.Null(), []string{"name:required"}},
		{"optional missing", VariableDefinition{Name: "qty", Type: "number"}, value.Undefined, nil},

		{"number text", VariableDefinition{Name: "qty", Type: "number"}, value.Text("12.5"), nil},
		{"grouped number text", VariableDefinition{Name: "qty", Type: "number"}, value.Text("1,200"), nil},
		{"number value", VariableDefinition{Name: "qty", Type: "NUMBER"}, value.Number(3), nil},
		{"invalid number", VariableDefinition{Name: "qty", Type: "number"}, value.Text("abc"), []string{"qty:invalid_number"}},
		{"boolean is not a number", VariableDefinition{Name: "qty", Type: "number"}, value.Bool(true), []string{"qty:invalid_number"}},

		{"date", VariableDefinition{Name: "due", Type: "date"}, value.Text("2024-03-05"), nil},
		{"invalid date", VariableDefinition{Name: "due", Type: "date"}, value.Text("31/31/2024"), []string{"due:invalid_date"}},
		{"number is not a date", VariableDefinition{Name: "due", Type: "date"}, value.Number(20240305), []string{"due:invalid_date"}},

		{"boolean word", VariableDefinition{Name: "paid", Type: "boolean"}, value.Text("Yes"), nil},
		{"boolean one", VariableDefinition{Name: "paid", Type: "boolean"}, value.Number(1), nil},
		{"invalid boolean", VariableDefinition{Name: "paid", Type: "boolean"}, value.Text("maybe"), []string{"paid:invalid_boolean"}},
		{"two is not a boolean", VariableDefinition{Name: "paid", Type: "boolean"}, value.Number(2), []string{"paid:invalid_boolean"}},

		{"currency amount", VariableDefinition{Name: "fee", Type: "currency"}, value.Text("12.50"), nil},
		{"currency object", VariableDefinition{Name: "fee", Type: "currency"}, value.MustFromAny(map[string]any{"value": 10, "currency": "EUR"}), nil},
		{"currency JSON text", VariableDefinition{Name: "fee", Type: "currency"}, value.Text(`{"value":"1","currency":"USD"}`), nil},
		{"currency without code", VariableDefinition{Name: "fee", Type: "currency"}, value.MustFromAny(map[string]any{"value": 10}), []string{"fee:invalid_currency"}},
		{"currency with blank code", VariableDefinition{Name: "fee", Type: "currency"}, value.MustFromAny(map[string]any{"value": 10, "currency": " "}), []string{"fee:invalid_currency"}},
		{"currency word", VariableDefinition{Name: "fee", Type: "currency"}, value.Text("ten"), []string{"fee:invalid_currency"}},

		{"array JSON text", lineItems, value.Text(`[{"sku":"a"}]`), nil},
		{"array too short", lineItems, value.Array(), []string{"lines:min_items"}},
		{"array too long", lineItems, value.MustFromAny([]any{map[string]any{"sku": "a"}, map[string]any{"sku": "b"}, map[string]any{"sku": "c"}}), []string{"lines:max_items"}},
		{"array item missing property", lineItems, value.MustFromAny([]any{map[string]any{"SKU": "a"}, map[string]any{}}), []string{"lines[1].sku:required"}},
		{"array item not an object", lineItems, value.MustFromAny([]any{"a"}), []string{"lines[0]:invalid_object"}},
		{"not an array", lineItems, value.Text("nope"), []string{"lines:invalid_array"}},

		{"object", address, value.MustFromAny(map[string]any{"City": "Oslo"}), nil},
		{"object missing property", address, value.FromObject(value.NewObject()), []string{"addr.city:required"}},
		{"not an object", address, value.Text("x"), []string{"addr:invalid_object"}},

		{"pattern match", VariableDefinition{Name: "code", Type: "string", Pattern: StringPtr(`^[A-Z]{3}$`)}, value.Text("ABC"), nil},
		{"pattern mismatch", VariableDefinition{Name: "code", Type: "string", Pattern: StringPtr(`^[A-Z]{3}$`)}, value.Text("abc"), []string{"code:pattern_mismatch"}},
		{"invalid pattern", VariableDefinition{Name: "code", Type: "string", Pattern: StringPtr(`(`)}, value.Text("abc"), []string{"code:invalid_pattern"}},
		{"pattern ignores non-text values", VariableDefinition{Name: "code", Type: "number", Pattern: StringPtr(`^x$`)}, value.Number(1), nil},

		{"computed is skipped", VariableDefinition{Name: "total", Type: "number", Required: true, IsComputed: true}, value.Undefined, nil},
		{"unknown type accepts anything", VariableDefinition{Name: "x", Type: "rich"}, value.Text("whatever"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provided := map[string]value.Value{}
			if !tt.val.IsUndefined() {
				provided[tt.def.Name] = tt.val
			}
			result := Validate([]VariableDefinition{tt.def}, provided)

			if len(tt.want) == 0 {
				assert.True(t, result.IsValid)
				assert.Empty(t, result.Errors)
				assert.NoError(t, result.Err())
				return
			}
			assert.False(t, result.IsValid)
			assert.Equal(t, tt.want, validationFailures(result))
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	defs := []VariableDefinition{
		{Name: "name", Label: "Customer name", Type: "string", Required: true},
		{Name: "qty", Type: "number"},
		{Name: "due", Type: "date", Required: true},
	}
	result := Validate(defs, map[string]value.Value{"QTY": value.Text("many")})

	assert.Equal(t, []string{"name:required", "qty:invalid_number", "due:required"}, validationFailures(result))
	assert.Equal(t, "Customer name is required", result.Errors[0].Message)

	err := result.Err()
	require.Error(t, err)
	var multi *MultiError
	require.True(t, errors.As(err, &multi))
	assert.Equal(t, 3, multi.Len())
	assert.Contains(t, err.Error(), "qty: qty must be a number")
}

func TestValidateStrict(t *testing.T) {
	_, err := ValidateStrict(nil, nil)
	assert.ErrorIs(t, err, ErrNilDefinitions)

	result, err := ValidateStrict([]VariableDefinition{}, nil)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.NotNil(t, result.Errors)
}
