package stencil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

func TestMerge(t *testing.T) {
	defs := []VariableDefinition{
		{Name: "customer", Type: "string", DefaultValue: StringPtr("Guest")},
		{Name: "qty", Type: "number", DefaultValue: StringPtr("1")},
		{Name: "price", Type: "number"},
		{Name: "lines", Type: "array"},
		{Name: "fee", Type: "currency"},
		{Name: "total", Type: "number", IsComputed: true, DefaultValue: StringPtr("0")},
		{Name: "unset", Type: "string"},
	}
	stored := map[string]string{
		"price": "10",
		"QTY":   "3",
		"note":  "stored note",
		"extra": "stored",
		"tags":  "old",
	}
	provided := map[string]value.Value{
		"customer": value.Text("Ada"),
		"lines":    value.Text(`[1,2]`),
		"fee":      value.MustFromAny(map[string]any{"value": 5, "currency": "EUR"}),
		"extra":    value.Text("provided"),
		"tags":     value.MustFromAny([]any{"a"}),
		"nothing":  value.Null(),
		"total":    value.Text("99"),
		"count":    value.Number(4),
	}

	result := Merge(defs, stored, provided)

	wantFlat := map[string]string{
		"customer": "Ada",
		"qty":      "3",
		"price":    "10",
		"fee":      "5",
		"note":     "stored note",
		"extra":    "provided",
		"count":    "4",
	}
	if diff := cmp.Diff(wantFlat, result.Flat); diff != "" {
		t.Errorf("Flat mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, result.Structured, 2)
	assert.Equal(t, "[1,2]", result.Structured["lines"].Display())
	assert.Equal(t, `["a"]`, result.Structured["tags"].Display())
}

func TestMerge_Precedence(t *testing.T) {
	defs := []VariableDefinition{{Name: "name", Type: "string", DefaultValue: StringPtr("default")}}

	tests := []struct {
		name     string
		stored   map[string]string
		provided map[string]value.Value
		want     string
	}{
		{"default only", nil, nil, "default"},
		{"stored beats default", map[string]string{"name": "stored"}, nil, "stored"},
		{"provided beats stored", map[string]string{"name": "stored"}, map[string]value.Value{"name": value.Text("provided")}, "provided"},
		{"null provided falls back", map[string]string{"name": "stored"}, map[string]value.Value{"name": value.Null()}, "stored"},
		{"empty provided text still wins", map[string]string{"name": "stored"}, map[string]value.Value{"NAME": value.Text("")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Merge(defs, tt.stored, tt.provided)
			assert.Equal(t, tt.want, result.Flat["name"])
		})
	}
}

func TestMerge_ComplexDefinitionWithPlainText(t *testing.T) {
	defs := []VariableDefinition{{Name: "lines", Type: "array"}}
	result := Merge(defs, nil, map[string]value.Value{"lines": value.Text("not json")})

	assert.Equal(t, "not json", result.Flat["lines"])
	assert.Empty(t, result.Structured)
}

func TestMergeResult_RenderContext(t *testing.T) {
	result := Merge(nil, map[string]string{"a": "1"}, nil)
	ctx := result.RenderContext(2, 5)

	assert.Equal(t, 2, ctx.PageNumber)
	assert.Equal(t, 5, ctx.TotalPages)
	assert.Equal(t, "1", ctx.Variables["a"])
}
