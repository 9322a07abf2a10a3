// Package jsonwalk implements structural search over decoded JSON documents.
//
// A decoded document is a tree of three node kinds: mappings
// (map[string]any), sequences ([]any), and scalars (everything else).
// Search is depth-first and pre-order: at every mapping the direct
// entries are inspected before any nested structure found in their
// values, so an occurrence at a shallower depth always wins over one
// buried further down. Within a single mapping, entries are visited in
// sorted key order to keep results deterministic; the first match wins.
package jsonwalk

import "sort"

// Find walks node in pre-order and returns the value of the first
// mapping entry for which pred reports true. The second return value
// is false when no entry matches anywhere in the structure.
func Find(node any, pred func(key string, value any) bool) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		keys := sortedKeys(n)
		for _, k := range keys {
			if pred(k, n[k]) {
				return n[k], true
			}
		}
		for _, k := range keys {
			if v, ok := Find(n[k], pred); ok {
				return v, true
			}
		}
	case []any:
		for _, item := range n {
			if v, ok := Find(item, pred); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// FindKey returns the value of the first mapping entry whose key equals
// key, searching node in pre-order. Absence is not an error: a missing
// key yields (nil, false).
func FindKey(node any, key string) (any, bool) {
	return Find(node, func(k string, _ any) bool { return k == key })
}

// FindString is FindKey restricted to string values; non-string matches
// are skipped so a later string occurrence can still be found.
func FindString(node any, key string) (string, bool) {
	v, ok := Find(node, func(k string, value any) bool {
		if k != key {
			return false
		}
		_, isString := value.(string)
		return isString
	})
	if !ok {
		return "", false
	}
	return v.(string), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsMap returns value as a mapping, or nil when it is anything else.
func AsMap(value any) map[string]any {
	if value == nil {
		return nil
	}
	m, _ := value.(map[string]any)
	return m
}

// AsSlice returns value as a sequence, or nil when it is anything else.
func AsSlice(value any) []any {
	if value == nil {
		return nil
	}
	s, _ := value.([]any)
	return s
}

// GetPath descends a fixed chain of mapping keys and returns the value
// at the end, or nil as soon as any step is not a mapping.
func GetPath(value map[string]any, keys ...string) any {
	var current any = value
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// GetString returns value as a string, or "" when it is anything else.
func GetString(value any) string {
	if value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}
