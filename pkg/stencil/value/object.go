package value

import "strings"

// Object is an ordered string-keyed map. Keys are case-sensitive for exact
// lookups; a lower-cased index serves case-insensitive fallback lookups and
// always resolves to the first matching key in insertion order.
type Object struct {
	keys   []string
	values map[string]Value
	folded map[string]string
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{
		values: make(map[string]Value),
		folded: make(map[string]string),
	}
}

// Set adds or replaces key. Replacing keeps the original position.
func (o *Object) Set(key string, v Value) *Object {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
		lower := strings.ToLower(key)
		if _, taken := o.folded[lower]; !taken {
			o.folded[lower] = key
		}
	}
	o.values[key] = v
	return o
}

// Get returns the value stored under exactly key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Undefined, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Lookup tries an exact match first and falls back to a case-insensitive
// match.
func (o *Object) Lookup(key string) (Value, bool) {
	if v, ok := o.Get(key); ok {
		return v, true
	}
	if o == nil {
		return Undefined, false
	}
	if original, ok := o.folded[strings.ToLower(key)]; ok {
		return o.values[original], true
	}
	return Undefined, false
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, key := range o.keys {
		if !fn(key, o.values[key]) {
			return
		}
	}
}
