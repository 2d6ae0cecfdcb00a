package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var jsonNumberRegex = regexp.MustCompile(`^-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

func isNumberText(raw string) bool {
	return jsonNumberRegex.MatchString(raw)
}

// ParseJSON decodes a JSON document into a Value, keeping object keys in
// document order and numbers in their original textual form.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Undefined, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Undefined, errors.New("unexpected trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Undefined, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Undefined, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Undefined, err
			}
			return Array(items...), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Undefined, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Undefined, fmt.Errorf("invalid object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return Undefined, err
				}
				obj.Set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Undefined, err
			}
			return FromObject(obj), nil
		default:
			return Undefined, fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case json.Number:
		v, ok := NumberFromText(t.String())
		if !ok {
			return Undefined, fmt.Errorf("invalid number %q", t.String())
		}
		return v, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Undefined, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. Text values marshal as JSON strings
// and Undefined marshals as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindUndefined, KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if isNumberText(v.str) {
			buf.WriteString(v.str)
		} else {
			buf.WriteString(strconv.FormatFloat(v.num, 'f', -1, 64))
		}
	case KindText, KindString:
		data, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		var err error
		first := true
		v.obj.Range(func(key string, item Value) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			var keyData []byte
			if keyData, err = json.Marshal(key); err != nil {
				return false
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			err = item.writeJSON(buf)
			return err == nil
		})
		if err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	return nil
}

// FromAny converts plain Go data into a Value. Maps are ordered by key since
// Go maps carry no order. Unsupported types yield an error.
func FromAny(data any) (Value, error) {
	switch d := data.(type) {
	case nil:
		return Null(), nil
	case Value:
		return d, nil
	case *Object:
		return FromObject(d), nil
	case bool:
		return Bool(d), nil
	case string:
		return String(d), nil
	case json.Number:
		v, ok := NumberFromText(d.String())
		if !ok {
			return Undefined, fmt.Errorf("invalid number %q", d.String())
		}
		return v, nil
	case float64:
		return finiteNumber(d)
	case float32:
		return finiteNumber(float64(d))
	case int:
		return Number(float64(d)), nil
	case int8:
		return Number(float64(d)), nil
	case int16:
		return Number(float64(d)), nil
	case int32:
		return Number(float64(d)), nil
	case int64:
		return Number(float64(d)), nil
	case uint:
		return Number(float64(d)), nil
	case uint8:
		return Number(float64(d)), nil
	case uint16:
		return Number(float64(d)), nil
	case uint32:
		return Number(float64(d)), nil
	case uint64:
		return Number(float64(d)), nil
	case []any:
		items := make([]Value, len(d))
		for i, item := range d {
			v, err := FromAny(item)
			if err != nil {
				return Undefined, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromAny(d[k])
			if err != nil {
				return Undefined, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Set(k, v)
		}
		return FromObject(obj), nil
	}

	// Typed slices and maps, e.g. []string or map[string]int.
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Undefined, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Undefined, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		generic := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[iter.Key().String()] = iter.Value().Interface()
		}
		return FromAny(generic)
	}
	return Undefined, fmt.Errorf("unsupported type %T", data)
}

// MustFromAny is FromAny for literals in tests and examples.
func MustFromAny(data any) Value {
	v, err := FromAny(data)
	if err != nil {
		panic(err)
	}
	return v
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Undefined, fmt.Errorf("non-finite number %v", f)
	}
	return Number(f), nil
}

// ParseJSONString is ParseJSON for string input. Leading and trailing
// whitespace is ignored.
func ParseJSONString(s string) (Value, error) {
	return ParseJSON([]byte(strings.TrimSpace(s)))
}
