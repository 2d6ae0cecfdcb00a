package stencil

import (
	"sort"
	"strings"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// MergeResult is the effective variable set for a render. Flat holds string
// values; Structured holds arrays and objects.
type MergeResult struct {
	Flat       map[string]string
	Structured map[string]value.Value
}

// RenderContext builds a render context from the merged values.
func (m MergeResult) RenderContext(pageNumber, totalPages int) *RenderContext {
	return NewRenderContext(pageNumber, totalPages, m.Flat, m.Structured)
}

// Merge combines definition defaults, previously stored values and newly
// provided values. For each variable a provided value wins over a stored
// one, which wins over the default. Computed variables never take stored or
// provided values. Names without a definition pass through unchanged.
func Merge(defs []VariableDefinition, stored map[string]string, provided map[string]value.Value) MergeResult {
	result := MergeResult{
		Flat:       make(map[string]string),
		Structured: make(map[string]value.Value),
	}
	declared := make(map[string]bool, len(defs))

	for _, def := range defs {
		declared[strings.ToLower(def.Name)] = true
		if def.IsComputed {
			continue
		}

		if v, ok := lookupProvided(provided, def.Name); ok && !v.IsNil() {
			result.assign(def, v)
			continue
		}
		if s, ok := lookupStored(stored, def.Name); ok {
			result.assign(def, value.Text(s))
			continue
		}
		if def.DefaultValue != nil {
			result.assign(def, value.Text(*def.DefaultValue))
		}
	}

	// undeclared stored values first so provided ones overwrite them
	for _, name := range sortedKeys(stored) {
		if !declared[strings.ToLower(name)] {
			result.Flat[name] = stored[name]
		}
	}
	for _, name := range sortedValueKeys(provided) {
		if declared[strings.ToLower(name)] {
			continue
		}
		v := provided[name]
		switch v.Kind() {
		case value.KindArray, value.KindObject:
			result.Structured[name] = v
			delete(result.Flat, name)
		case value.KindUndefined, value.KindNull:
		default:
			result.Flat[name] = v.Display()
		}
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"flat":       len(result.Flat),
			"structured": len(result.Structured),
		}).Debug("Merged variables")
	}

	return result
}

// assign stores v under the definition's name. Complex definitions keep
// arrays and objects structured, parsing JSON text when needed; a currency
// object contributes its amount.
func (m MergeResult) assign(def VariableDefinition, v value.Value) {
	name := def.Name

	if def.IsComplex() {
		if v.IsStringLike() {
			if parsed, err := value.ParseJSONString(v.Display()); err == nil {
				v = parsed
			}
		}
		switch v.Kind() {
		case value.KindArray, value.KindObject:
			m.Structured[name] = v
			return
		}
		m.Flat[name] = v.Display()
		return
	}

	if def.NormalizedType() == TypeCurrency {
		if obj, ok := v.Object(); ok {
			if amount, ok := obj.Lookup("value"); ok {
				m.Flat[name] = amount.Display()
				return
			}
		}
	}

	switch v.Kind() {
	case value.KindArray, value.KindObject:
		m.Structured[name] = v
	default:
		m.Flat[name] = v.Display()
	}
}

func lookupStored(stored map[string]string, name string) (string, bool) {
	if s, ok := stored[name]; ok {
		return s, true
	}
	for _, k := range sortedKeys(stored) {
		if strings.EqualFold(k, name) {
			return stored[k], true
		}
	}
	return "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValueKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
