package kv

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// normalize converts v into the JSON tree the store keeps: nil, bool,
// float64, string, []any and map[string]any. Structs and typed maps go
// through their JSON encoding.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out, nil
}

// number reads v as a float64, treating anything non-numeric as 0.
func number(v any) float64 {
	if f, ok := v.(float64); ok && !math.IsNaN(f) {
		return f
	}
	return 0
}

// truthy follows JavaScript truthiness: null, false, 0, NaN and "" are
// false; everything else, including empty lists and maps, is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// asList returns v as a list for Push: absent or null becomes empty, a list
// is reused, anything else becomes a one-element list.
func asList(v any, ok bool) []any {
	if !ok || v == nil {
		return []any{}
	}
	if l, isList := v.([]any); isList {
		return l
	}
	return []any{v}
}

// matches reports whether value satisfies a Find query. When both are maps
// every query attribute must be present and deeply equal; nested maps are
// compared whole. Otherwise the two must be deeply equal.
func matches(value, query any) bool {
	vm, vok := value.(map[string]any)
	qm, qok := query.(map[string]any)
	if vok && qok {
		for k, qv := range qm {
			ev, ok := vm[k]
			if !ok || !reflect.DeepEqual(ev, qv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(value, query)
}
