package render

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return "undefined"
	}
}

// Value is the closed set of shapes template data may take. The zero Value is
// undefined and never substituted.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    Data
}

// Data is the template data handed to the renderer.
type Data map[string]Value

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map returns a nested value addressed with dotted keys.
func Map(m Data) Value { return Value{kind: KindMap, m: m} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Defined reports whether v holds anything.
func (v Value) Defined() bool { return v.kind != KindUndefined }

// Text returns the substitution text for scalar values. ok is false for
// undefined and map values.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Lookup returns the member key of a map value.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// FromAny converts loosely typed data (for example decoded JSON) into Data.
// Slices, structs and nil values are rejected instead of being stringified.
func FromAny(in map[string]any) (Data, error) {
	return fromAny(in, "")
}

func fromAny(in map[string]any, prefix string) (Data, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Data, len(in))
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		v, err := valueOf(in[k], path)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func valueOf(raw any, path string) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case Value:
		return t, nil
	case Data:
		return Map(t), nil
	case map[string]string:
		m := make(Data, len(t))
		for k, s := range t {
			m[k] = String(s)
		}
		return Map(m), nil
	case map[string]any:
		m, err := fromAny(t, path)
		if err != nil {
			return Value{}, err
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported template value %T at %q", raw, path)
	}
}
