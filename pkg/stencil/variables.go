package stencil

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Variable types a definition may declare. Comparison is case-insensitive.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeBoolean  = "boolean"
	TypeCurrency = "currency"
	TypeArray    = "array"
	TypeObject   = "object"
)

// VariableDefinition describes one template variable. The JSON field names
// are shared with the authoring UI and stored document content.
type VariableDefinition struct {
	Name         string               `json:"name" yaml:"name"`
	Type         string               `json:"type" yaml:"type"`
	Label        string               `json:"label" yaml:"label"`
	Description  *string              `json:"description,omitempty" yaml:"description,omitempty"`
	Required     bool                 `json:"required" yaml:"required"`
	DefaultValue *string              `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Pattern      *string              `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Format       *string              `json:"format,omitempty" yaml:"format,omitempty"`
	Category     *string              `json:"category,omitempty" yaml:"category,omitempty"`
	Order        int                  `json:"order" yaml:"order"`
	ItemSchema   []VariableDefinition `json:"itemSchema,omitempty" yaml:"itemSchema,omitempty"`
	MinItems     *int                 `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems     *int                 `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Properties   []VariableDefinition `json:"properties,omitempty" yaml:"properties,omitempty"`
	IsComputed   bool                 `json:"isComputed" yaml:"isComputed"`
	Expression   *string              `json:"expression,omitempty" yaml:"expression,omitempty"`
	DependsOn    []string             `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// NormalizedType returns the lower-cased type.
func (d VariableDefinition) NormalizedType() string {
	return strings.ToLower(strings.TrimSpace(d.Type))
}

// IsPrimitive reports whether the type is string, number, date, boolean or currency.
func (d VariableDefinition) IsPrimitive() bool {
	switch d.NormalizedType() {
	case TypeString, TypeNumber, TypeDate, TypeBoolean, TypeCurrency:
		return true
	}
	return false
}

// IsComplex reports whether the type is array or object.
func (d VariableDefinition) IsComplex() bool {
	switch d.NormalizedType() {
	case TypeArray, TypeObject:
		return true
	}
	return false
}

// DisplayLabel returns the label, or the name when no label is set.
func (d VariableDefinition) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

func optString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StringPtr returns a pointer to s, for building definitions in code.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n, for building definitions in code.
func IntPtr(n int) *int { return &n }

// SortDefinitions returns a copy of defs ordered by Order, then Name.
func SortDefinitions(defs []VariableDefinition) []VariableDefinition {
	sorted := make([]VariableDefinition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// CategoryGroup is the set of definitions sharing a category.
type CategoryGroup struct {
	Category    string
	Definitions []VariableDefinition
}

// GroupByCategory groups definitions by category in order of first
// appearance after sorting. Definitions without a category are grouped
// under "".
func GroupByCategory(defs []VariableDefinition) []CategoryGroup {
	var groups []CategoryGroup
	index := make(map[string]int)
	for _, def := range SortDefinitions(defs) {
		category := optString(def.Category)
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, CategoryGroup{Category: category})
		}
		groups[i].Definitions = append(groups[i].Definitions, def)
	}
	return groups
}

// FindDefinition looks a definition up by name, exactly first and then
// ignoring case.
func FindDefinition(defs []VariableDefinition, name string) (*VariableDefinition, bool) {
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i], true
		}
	}
	for i := range defs {
		if strings.EqualFold(defs[i].Name, name) {
			return &defs[i], true
		}
	}
	return nil, false
}

// DefinitionsFromJSON decodes a definition list. Both a bare array and an
// object with a "variables" array are accepted.
func DefinitionsFromJSON(data []byte) ([]VariableDefinition, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Variables []VariableDefinition `json:"variables"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode variable definitions: %w", err)
		}
		return wrapper.Variables, nil
	}

	var defs []VariableDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode variable definitions: %w", err)
	}
	return defs, nil
}
