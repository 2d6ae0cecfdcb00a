package value

import (
	"strconv"
	"strings"
)

// SplitPath splits a dotted property path. Empty segments are dropped, so
// "a..b" resolves like "a.b".
func SplitPath(path string) []string {
	raw := strings.Split(strings.TrimSpace(path), ".")
	parts := raw[:0]
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Resolve walks path from root. Object segments try an exact key first and
// then a case-insensitive match. A numeric segment indexes into an array.
// Resolution fails as soon as a segment cannot be applied.
func Resolve(root Value, path []string) (Value, bool) {
	current := root
	for _, segment := range path {
		switch current.kind {
		case KindObject:
			next, ok := current.obj.Lookup(segment)
			if !ok {
				return Undefined, false
			}
			current = next
		case KindArray:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(current.items) {
				return Undefined, false
			}
			current = current.items[idx]
		default:
			return Undefined, false
		}
	}
	return current, true
}

// Get resolves a dotted path from root.
func Get(root Value, path string) (Value, bool) {
	return Resolve(root, SplitPath(path))
}
