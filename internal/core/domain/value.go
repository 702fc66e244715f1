package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Kind
// =============================================================================

// Kind discriminates the variants a parameter Value can hold.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// =============================================================================
// Value
// =============================================================================

// Value is a tagged union over the types a template parameter can carry:
// string, integer, boolean, float, array, object, or null. Values are
// immutable after construction and safe to share.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	bln  bool
	arr  []Value
	obj  map[string]Value
}

func NewString(s string) Value { return Value{kind: KindString, str: s} }
func NewInt(n int64) Value     { return Value{kind: KindInt, num: n} }
func NewFloat(f float64) Value { return Value{kind: KindFloat, flt: f} }
func NewBool(b bool) Value     { return Value{kind: KindBool, bln: b} }
func Null() Value              { return Value{kind: KindNull} }

func NewArray(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}

func NewObject(fields map[string]Value) Value {
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value is the uninitialized zero Value.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

func (v Value) Str() string              { return v.str }
func (v Value) Int() int64               { return v.num }
func (v Value) Bool() bool               { return v.bln }
func (v Value) Items() []Value           { return v.arr }
func (v Value) Fields() map[string]Value { return v.obj }

// Float returns the value as a float64. Integer values convert losslessly.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.num)
	}
	return v.flt
}

// Matches reports whether the value satisfies the declared parameter type.
// There is no coercion: an integer never satisfies "string" and a float
// never satisfies "integer".
func (v Value) Matches(t ParamType) bool {
	switch t {
	case TypeString:
		return v.kind == KindString
	case TypeInteger:
		return v.kind == KindInt
	case TypeBoolean:
		return v.kind == KindBool
	case TypeArray:
		return v.kind == KindArray
	case TypeObject:
		return v.kind == KindObject
	default:
		return false
	}
}

// Equal reports whether two values hold the same kind and the same content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.bln == o.bln
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, el := range v.obj {
			other, ok := o.obj[k]
			if !ok || !el.Equal(other) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface returns the value as plain Go data, suitable for binding into a
// render context or re-encoding as YAML/JSON.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.bln
	case KindArray:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, el := range v.obj {
			out[k] = el.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders the value in a compact human-readable form for error
// messages and documentation. Object keys are sorted for determinism.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bln)
	case KindNull:
		return "null"
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, el := range v.arr {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// =============================================================================
// Conversion
// =============================================================================

// FromYAML converts a value decoded by yaml.v3 into a Value.
func FromYAML(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int8:
		return NewInt(int64(t)), nil
	case int16:
		return NewInt(int64(t)), nil
	case int32:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case uint:
		return NewInt(int64(t)), nil
	case uint8:
		return NewInt(int64(t)), nil
	case uint16:
		return NewInt(int64(t)), nil
	case uint32:
		return NewInt(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: integer %d overflows", ErrUnsupportedValue, t)
		}
		return NewInt(int64(t)), nil
	case float32:
		return NewFloat(float64(t)), nil
	case float64:
		return NewFloat(t), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, el := range t {
			v, err := FromYAML(el)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, el := range t {
			v, err := FromYAML(el)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields[k] = v
		}
		return NewObject(fields), nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, el := range t {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: %v", ErrNonStringKey, k)
			}
			v, err := FromYAML(el)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", ks, err)
			}
			fields[ks] = v
		}
		return NewObject(fields), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}

// ParseScalar interprets a raw command-line value the way a YAML scalar is
// interpreted: "80" becomes an integer, "true" a boolean, quoted text stays
// a string. Non-scalar input and anything that fails to parse is kept as a
// plain string.
func ParseScalar(raw string) Value {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil || len(node.Content) == 0 {
		return NewString(raw)
	}
	doc := node.Content[0]
	if doc.Kind != yaml.ScalarNode {
		return NewString(raw)
	}
	var decoded any
	if err := doc.Decode(&decoded); err != nil {
		return NewString(raw)
	}
	v, err := FromYAML(decoded)
	if err != nil {
		return NewString(raw)
	}
	return v
}

// =============================================================================
// YAML Marshalling
// =============================================================================

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromYAML(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
