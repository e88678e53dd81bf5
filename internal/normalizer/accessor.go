package normalizer

import (
	"encoding/json"
	"strconv"
)

// optional is a value that may be absent. Every field read in this package
// goes through one, so a missing or mistyped key never faults.
type optional[T any] struct {
	value T
	ok    bool
}

func some[T any](v T) optional[T] {
	return optional[T]{value: v, ok: true}
}

func none[T any]() optional[T] {
	return optional[T]{}
}

// or returns the held value, or def when absent.
func (o optional[T]) or(def T) T {
	if !o.ok {
		return def
	}

	return o.value
}

// getMap reads key as a JSON object.
func getMap(item map[string]any, key string) optional[map[string]any] {
	if m, ok := item[key].(map[string]any); ok {
		return some(m)
	}

	return none[map[string]any]()
}

// getList reads key as a JSON array. An empty array is present.
func getList(item map[string]any, key string) optional[[]any] {
	if l, ok := item[key].([]any); ok {
		return some(l)
	}

	return none[[]any]()
}

// getString reads key as a string of any length.
func getString(item map[string]any, key string) optional[string] {
	if s, ok := item[key].(string); ok {
		return some(s)
	}

	return none[string]()
}

// getNonEmptyString reads key as a string and treats "" as absent.
func getNonEmptyString(item map[string]any, key string) optional[string] {
	if s := getString(item, key); s.ok && s.value != "" {
		return s
	}

	return none[string]()
}

// getBool reads key as a JSON boolean.
func getBool(item map[string]any, key string) optional[bool] {
	if b, ok := item[key].(bool); ok {
		return some(b)
	}

	return none[bool]()
}

// getID reads the item identifier. Numeric ids keep their JSON text so that
// equal ids compare equal during deduplication.
func getID(item map[string]any) optional[string] {
	switch v := item["id"].(type) {
	case string:
		return some(v)
	case json.Number:
		return some(v.String())
	case float64:
		return some(strconv.FormatFloat(v, 'f', -1, 64))
	}

	return none[string]()
}

// truthy reports whether v counts as a set value: not null, false, zero,
// or an empty string, array or object.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}

	return true
}
