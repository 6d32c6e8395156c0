package recognition

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value models provider-shaped recognition output: an arbitrary JSON-like tree
// of objects, arrays and scalars with no fixed schema. A Value is read-only
// after creation.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	arr     []Value
	obj     map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Number wraps a numeric scalar.
func Number(f float64) Value { return Value{kind: KindNumber, numVal: f} }

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Array wraps a sequence of values.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object wraps a mapping of string keys to values.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, obj: fields} }

// FromJSON parses raw JSON bytes into a Value.
func FromJSON(data []byte) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Null(), fmt.Errorf("recognition: parse JSON: %w", err)
	}
	return fromAny(raw), nil
}

func fromAny(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(v)
	case float64:
		return Number(v)
	case string:
		return String(v)
	case []interface{}:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, fromAny(item))
		}
		return Array(items...)
	case map[string]interface{}:
		fields := make(map[string]Value, len(v))
		for k, item := range v {
			fields[k] = fromAny(item)
		}
		return Object(fields)
	default:
		// encoding/json never produces other types for interface{} targets.
		return Null()
	}
}

// MarshalJSON renders the value back into plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toAny())
}

func (v Value) toAny() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numVal
	case KindString:
		return v.strVal
	case KindArray:
		items := make([]interface{}, 0, len(v.arr))
		for _, item := range v.arr {
			items = append(items, item.toAny())
		}
		return items
	case KindObject:
		fields := make(map[string]interface{}, len(v.obj))
		for k, item := range v.obj {
			fields[k] = item.toAny()
		}
		return fields
	default:
		return nil
	}
}

// Kind reports the variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string scalar, if the value is one.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strVal, true
}

// AsBool returns the boolean scalar, if the value is one.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

// AsNumber returns the numeric scalar, if the value is one.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.numVal, true
}

// Field returns the named field of an object value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Items returns the elements of an array value, or nil.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Flatten walks the value depth-first, visiting object fields in sorted key
// order, and returns every string leaf in traversal order. The traversal is
// pure and terminates on any finite structure; recognition output is decoded
// JSON and therefore acyclic.
func (v Value) Flatten() []string {
	var out []string
	v.flattenInto(&out)
	return out
}

func (v Value) flattenInto(out *[]string) {
	switch v.kind {
	case KindString:
		*out = append(*out, v.strVal)
	case KindArray:
		for _, item := range v.arr {
			item.flattenInto(out)
		}
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v.obj[k].flattenInto(out)
		}
	}
}

// FlatText returns the flattened string leaves joined by newlines, a convenient
// corpus for pattern searches.
func (v Value) FlatText() string {
	return strings.Join(v.Flatten(), "\n")
}

// FindKey searches the value depth-first (sorted key order) for the first
// object field whose normalized name matches any of the given aliases, and
// returns that field's value. Key names are compared case-insensitively with
// spaces, underscores and dashes ignored, so "Routing Number", "routing_number"
// and "routingNumber" all match the alias "routingnumber".
func (v Value) FindKey(aliases ...string) (Value, bool) {
	wanted := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		wanted[normalizeKey(a)] = true
	}
	return v.findKey(wanted)
}

func (v Value) findKey(wanted map[string]bool) (Value, bool) {
	switch v.kind {
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if wanted[normalizeKey(k)] {
				return v.obj[k], true
			}
		}
		for _, k := range keys {
			if found, ok := v.obj[k].findKey(wanted); ok {
				return found, ok
			}
		}
	case KindArray:
		for _, item := range v.arr {
			if found, ok := item.findKey(wanted); ok {
				return found, ok
			}
		}
	}
	return Null(), false
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
