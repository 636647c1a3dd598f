package values

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrNotMapping is returned when a helper expecting a mapping receives any
// other kind of value. It signals a caller bug, not a user input problem.
var ErrNotMapping = errors.New("values: value is not a mapping")

// Values maps fully qualified field names to the scalar submitted for them.
// Names follow the bracket convention used by element names, for example
// `cars[0][color]`.
type Values map[string]any

// Lookup returns the value stored for name and whether the key exists.
func (v Values) Lookup(name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	value, ok := v[name]
	return value, ok
}

// Get returns the value stored for name, or nil when absent.
func (v Values) Get(name string) any {
	value, _ := v.Lookup(name)
	return value
}

// Names returns the keys in lexical order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flatten converts nested submitted values into a flat mapping keyed by the
// bracketed path of each leaf: {"cars": [{"color": "red"}]} becomes
// {"cars[0][color]": "red"}. Already flat input is returned unchanged.
func Flatten(nested map[string]any) Values {
	out := make(Values, len(nested))
	for key, value := range nested {
		flattenInto(out, key, value)
	}
	return out
}

// FlattenAny flattens any mapping value. Non-mappings (including nil) fail
// with ErrNotMapping.
func FlattenAny(v any) (Values, error) {
	switch typed := v.(type) {
	case nil:
		return nil, ErrNotMapping
	case Values:
		return Flatten(typed), nil
	case map[string]any:
		return Flatten(typed), nil
	case url.Values:
		return FromURLValues(typed), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, ErrNotMapping
	}

	out := make(Values, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		flattenInto(out, iter.Key().String(), iter.Value().Interface())
	}
	return out, nil
}

// FromURLValues flattens form-encoded input. Single values become strings,
// `name[]` keys expand into indexed names and other repeated keys keep their
// []string value.
func FromURLValues(form url.Values) Values {
	out := make(Values, len(form))
	for key, list := range form {
		if len(list) == 0 {
			continue
		}
		if base, ok := strings.CutSuffix(key, "[]"); ok && base != "" {
			for idx, item := range list {
				out[indexedName(base, idx)] = item
			}
			continue
		}
		if len(list) == 1 {
			out[key] = list[0]
			continue
		}
		out[key] = append([]string(nil), list...)
	}
	return out
}

func flattenInto(out Values, prefix string, value any) {
	switch typed := value.(type) {
	case nil:
		out[prefix] = nil
	case string, bool, []byte:
		out[prefix] = typed
	case map[string]any:
		for key, child := range typed {
			flattenInto(out, childName(prefix, key), child)
		}
	case Values:
		for key, child := range typed {
			flattenInto(out, childName(prefix, key), child)
		}
	case map[string]string:
		for key, child := range typed {
			out[childName(prefix, key)] = child
		}
	case []any:
		for idx, child := range typed {
			flattenInto(out, indexedName(prefix, idx), child)
		}
	case []string:
		for idx, child := range typed {
			out[indexedName(prefix, idx)] = child
		}
	default:
		flattenReflect(out, prefix, value)
	}
}

func flattenReflect(out Values, prefix string, value any) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			out[prefix] = value
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			flattenInto(out, childName(prefix, iter.Key().String()), iter.Value().Interface())
		}
	case reflect.Slice, reflect.Array:
		for idx := 0; idx < rv.Len(); idx++ {
			flattenInto(out, indexedName(prefix, idx), rv.Index(idx).Interface())
		}
	case reflect.Pointer:
		if rv.IsNil() {
			out[prefix] = nil
			return
		}
		out[prefix] = value
	default:
		out[prefix] = value
	}
}

func childName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

func indexedName(prefix string, idx int) string {
	return childName(prefix, strconv.Itoa(idx))
}
