// Package docload reads variable definitions and values from JSON or YAML
// documents. A JSONPath selector picks the relevant part of a larger
// document, such as the variables stored inside a page's content field.
package docload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// Format is the encoding of a document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ErrNoMatch is returned when a selector matches nothing.
var ErrNoMatch = errors.New("selector matched nothing")

// FormatOf picks the format from a file extension. Anything that is not
// .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses data into plain Go values: maps, slices, strings, numbers,
// booleans and nil.
func Decode(data []byte, format Format) (any, error) {
	if format == FormatYAML {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return normalize(tree), nil
	}
	tree, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return tree, nil
}

// normalize turns YAML-only scalar types into their JSON counterparts.
func normalize(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = normalize(v)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = normalize(v)
		}
		return out
	case []any:
		for i, v := range n {
			n[i] = normalize(v)
		}
		return n
	case time.Time:
		if n.Hour() == 0 && n.Minute() == 0 && n.Second() == 0 && n.Nanosecond() == 0 {
			return n.Format("2006-01-02")
		}
		return n.Format(time.RFC3339)
	}
	return node
}

// Select applies a JSONPath selector to tree. A single match is returned as
// is; several matches are returned as a list. An empty selector returns tree.
func Select(tree any, selector string) (any, error) {
	if strings.TrimSpace(selector) == "" {
		return tree, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	results := x.Get(tree)
	switch len(results) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	case 1:
		return results[0], nil
	}
	return results, nil
}

// Definitions decodes a definition list from data. Without a selector the
// document must be a list of definitions or an object with a "variables"
// list.
func Definitions(data []byte, format Format, selector string) ([]stencil.VariableDefinition, error) {
	if format == FormatJSON && selector == "" {
		return stencil.DefinitionsFromJSON(data)
	}
	tree, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	node, err := Select(tree, selector)
	if err != nil {
		return nil, err
	}
	// a selector may pick out a single definition
	if m, ok := node.(map[string]any); ok {
		if _, wrapped := m["variables"]; !wrapped {
			node = []any{m}
		}
	}
	return stencil.DefinitionsFromJSON([]byte(oj.JSON(node)))
}

// Values decodes a name to value mapping from data. JSON documents read
// without a selector keep their key order.
func Values(data []byte, format Format, selector string) (map[string]value.Value, error) {
	var root value.Value
	if format == FormatJSON && selector == "" {
		v, err := value.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		root = v
	} else {
		tree, err := Decode(data, format)
		if err != nil {
			return nil, err
		}
		node, err := Select(tree, selector)
		if err != nil {
			return nil, err
		}
		if root, err = value.FromAny(node); err != nil {
			return nil, err
		}
	}

	obj, ok := root.Object()
	if !ok {
		return nil, fmt.Errorf("values must be an object, got %s", root.Kind())
	}
	values := make(map[string]value.Value, obj.Len())
	obj.Range(func(key string, v value.Value) bool {
		values[key] = v
		return true
	})
	return values, nil
}

// Rows decodes a list of objects into string rows for bulk generation.
// Non-string cells are kept in their display form, so arrays and objects
// become JSON text.
func Rows(data []byte, format Format, selector string) ([]map[string]string, error) {
	tree, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	node, err := Select(tree, selector)
	if err != nil {
		return nil, err
	}
	list, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("rows must be a list, got %T", node)
	}

	rows := make([]map[string]string, 0, len(list))
	for i, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: must be an object, got %T", i, item)
		}
		row := make(map[string]string, len(fields))
		for k, cell := range fields {
			v, err := value.FromAny(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, k, err)
			}
			row[k] = v.Display()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadDefinitions reads a definition list from a file.
func LoadDefinitions(path, selector string) ([]stencil.VariableDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stencil.NewDocumentError("read definitions", path, err)
	}
	defs, err := Definitions(data, FormatOf(path), selector)
	if err != nil {
		return nil, stencil.NewDocumentError("load definitions", path, err)
	}
	return defs, nil
}

// LoadValues reads provided values from a file.
func LoadValues(path, selector string) (map[string]value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stencil.NewDocumentError("read values", path, err)
	}
	values, err := Values(data, FormatOf(path), selector)
	if err != nil {
		return nil, stencil.NewDocumentError("load values", path, err)
	}
	return values, nil
}

// LoadStored reads previously stored flat values from a file. Structured
// values are kept as their JSON text.
func LoadStored(path, selector string) (map[string]string, error) {
	values, err := LoadValues(path, selector)
	if err != nil {
		return nil, err
	}
	return Flatten(values), nil
}

// LoadRows reads bulk rows from a file.
func LoadRows(path, selector string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stencil.NewDocumentError("read rows", path, err)
	}
	rows, err := Rows(data, FormatOf(path), selector)
	if err != nil {
		return nil, stencil.NewDocumentError("load rows", path, err)
	}
	return rows, nil
}

// Flatten converts values to their stored string form. Arrays and objects
// become JSON text so that merging can restore them.
func Flatten(values map[string]value.Value) map[string]string {
	flat := make(map[string]string, len(values))
	for name, v := range values {
		if !v.IsUndefined() {
			flat[name] = v.Display()
		}
	}
	return flat
}
