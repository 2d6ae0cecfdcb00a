// Package value provides the tagged value model shared by the renderer, the
// validator and the merger.
//
// A Value is either a flat text value (a variable stored as a plain string) or
// a structured value mirroring JSON: null, bool, number, string, array or
// object. Flat text and structured strings are kept apart because they follow
// different truthiness rules.
package value

import (
	"strconv"
	"strings"
)

// Kind identifies the representation held by a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindText
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged value. The zero Value is Undefined.
type Value struct {
	kind  Kind
	str   string // text, string, or the raw form of a number
	num   float64
	b     bool
	items []Value
	obj   *Object
}

// Undefined is returned for lookups that found nothing.
var Undefined = Value{}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Text wraps a flat variable value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// String wraps a string that is part of a structured value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float. Its display form is the shortest representation
// that round-trips.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberFromText parses raw as a number and keeps raw as its display form.
func NumberFromText(raw string) (Value, bool) {
	raw = strings.TrimSpace(raw)
	if !isNumberText(raw) {
		return Undefined, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Undefined, false
	}
	return Value{kind: KindNumber, num: f, str: raw}, true
}

// Array wraps an ordered list of values.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

// FromObject wraps an object.
func FromObject(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNil reports whether v is Undefined or Null.
func (v Value) IsNil() bool { return v.kind == KindUndefined || v.kind == KindNull }

// IsStringLike reports whether v is flat text or a structured string.
func (v Value) IsStringLike() bool { return v.kind == KindText || v.kind == KindString }

// Str returns the string payload of Text and String values.
func (v Value) Str() (string, bool) {
	if v.IsStringLike() {
		return v.str, true
	}
	return "", false
}

// Float returns the numeric payload of Number values.
func (v Value) Float() (float64, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return 0, false
}

// Boolean returns the payload of Bool values.
func (v Value) Boolean() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// Items returns the elements of an Array value.
func (v Value) Items() ([]Value, bool) {
	if v.kind == KindArray {
		return v.items, true
	}
	return nil, false
}

// Object returns the payload of Object values.
func (v Value) Object() (*Object, bool) {
	if v.kind == KindObject {
		return v.obj, true
	}
	return nil, false
}

// Len returns the number of elements of arrays, keys of objects, and runes
// of strings. Other kinds have length 0.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return v.obj.Len()
	case KindText, KindString:
		return len([]rune(v.str))
	default:
		return 0
	}
}

// Display returns the text used when the value is substituted into a
// template.
func (v Value) Display() string {
	switch v.kind {
	case KindText, KindString, KindNumber:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindArray, KindObject:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.Display()
}

// Interface converts v into plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindText, KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		v.obj.Range(func(key string, item Value) bool {
			out[key] = item.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// Equal reports deep equality. Text and String compare equal when their
// contents match; numbers compare by numeric value.
func (v Value) Equal(other Value) bool {
	if v.IsStringLike() && other.IsStringLike() {
		return v.str == other.str
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindArray:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.obj.Len() != other.obj.Len() {
			return false
		}
		equal := true
		v.obj.Range(func(key string, item Value) bool {
			o, ok := other.obj.Get(key)
			if !ok || !item.Equal(o) {
				equal = false
			}
			return equal
		})
		return equal
	}
	return false
}
