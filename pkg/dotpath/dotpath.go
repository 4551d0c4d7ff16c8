// Package dotpath reads and writes inside nested JSON-like values using
// dot-separated paths such as "settings.theme.color".
//
// Trees are the shapes produced by encoding/json when decoding into any:
// map[string]any for objects, []any for arrays, and scalars otherwise.
// Only maps are traversed; a list or scalar in the middle of a path ends
// the lookup.
package dotpath

import "strings"

// Separator splits path segments.
const Separator = "."

// Split cuts key at its first separator into the root key and the residual
// path. residual is empty when key has no separator.
func Split(key string) (root, residual string) {
	root, residual, _ = strings.Cut(key, Separator)
	return root, residual
}

// Valid reports whether key is a usable store key: non-empty, with no empty
// segment. "a", "a.b" are valid; "", "a.", ".a" and "a..b" are not.
func Valid(key string) bool {
	if key == "" {
		return false
	}
	for _, seg := range strings.Split(key, Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// Get returns the value at path inside tree. The second result is false when
// path is empty or any segment is missing or not a map.
func Get(tree any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := tree
	for _, seg := range strings.Split(path, Separator) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Has reports whether Get finds a value at path.
func Has(tree any, path string) bool {
	_, ok := Get(tree, path)
	return ok
}

// Set assigns value at path, creating an empty map for every missing
// intermediate segment. Intermediate values that are not maps are replaced
// by empty maps (see CoerceMap). Returns false only for an empty path.
func Set(tree map[string]any, path string, value any) bool {
	if path == "" || tree == nil {
		return false
	}
	segs := strings.Split(path, Separator)
	current := tree
	for _, seg := range segs[:len(segs)-1] {
		next := CoerceMap(current[seg])
		current[seg] = next
		current = next
	}
	current[segs[len(segs)-1]] = value
	return true
}

// Delete removes the value at path without creating anything. It returns
// false when an intermediate segment is absent or not a map, and true only
// when the final key existed.
func Delete(tree any, path string) bool {
	if path == "" {
		return false
	}
	segs := strings.Split(path, Separator)
	current := tree
	for _, seg := range segs[:len(segs)-1] {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		if current, ok = m[seg]; !ok {
			return false
		}
	}
	m, ok := current.(map[string]any)
	if !ok {
		return false
	}
	last := segs[len(segs)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	return true
}
