package stencil

import (
	"sort"
	"strings"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// MapBulkRow turns one row of tabular input into provided values.
//
// mapping maps column names to variable names; a nil mapping uses each
// column name as the variable name. Columns are matched ignoring case. Cells
// are coerced by the definition's type: numbers, booleans and JSON arrays or
// objects become typed values, everything else stays text. Empty cells and
// computed variables are skipped.
func MapBulkRow(defs []VariableDefinition, row map[string]string, mapping map[string]string) map[string]value.Value {
	out := make(map[string]value.Value)

	if mapping == nil {
		mapping = make(map[string]string, len(row))
		for column := range row {
			mapping[column] = column
		}
	}

	columns := make([]string, 0, len(mapping))
	for column := range mapping {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		cell, ok := lookupStored(row, column)
		if !ok || strings.TrimSpace(cell) == "" {
			continue
		}
		name := mapping[column]

		def, ok := FindDefinition(defs, name)
		if !ok {
			out[name] = value.Text(cell)
			continue
		}
		if def.IsComputed {
			continue
		}
		out[def.Name] = coerceCell(*def, cell)
	}

	return out
}

func coerceCell(def VariableDefinition, cell string) value.Value {
	switch def.NormalizedType() {
	case TypeNumber:
		if f, ok := parseDecimal(cell); ok {
			return value.Number(f)
		}
	case TypeBoolean:
		if b, ok := coerceBool(value.Text(cell)); ok {
			return value.Bool(b)
		}
	case TypeArray, TypeObject:
		if parsed, err := value.ParseJSONString(cell); err == nil {
			if parsed.Kind() == value.KindArray || parsed.Kind() == value.KindObject {
				return parsed
			}
		}
	}
	return value.Text(cell)
}
