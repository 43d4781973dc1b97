// Package value defines the single dynamically-typed JSON value used
// throughout the engine for workflow inputs, step outputs, and
// condition/template operands. Workflow documents are schema-free at
// authoring time, so the engine confines the untyped JSON surface to
// this one tagged union instead of passing `any` around.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
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

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Object preserves authored key order, so a workflow document's
// `with` and `inputs` mappings round-trip byte-for-byte.
type Object = orderedmap.OrderedMap[string, Value]

// Value is a tagged union over the JSON data model: Null, Bool,
// Number, String, Array, or Object. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null is the Null value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value    { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }

func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}

// NewObject returns an empty, order-preserving object Value.
func NewObject() Value {
	return Value{kind: KindObject, obj: orderedmap.New[string, Value]()}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a leaf value (not Array/Object) — the
// classification field-path traversal (C3) uses to decide whether a
// node is a candidate selection target.
func (v Value) IsScalar() bool {
	return v.kind != KindArray && v.kind != KindObject
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Get returns the field named key from an Object value, or (Null,
// false) if v is not an object or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	obj, ok := v.AsObject()
	if !ok {
		return Null, false
	}
	return obj.Get(key)
}

// Set mutates (or initializes) v as an Object and sets key. Returns
// the updated Value; callers must assign back since Value is used by
// value elsewhere in the engine.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindObject || v.obj == nil {
		v = NewObject()
	}
	v.obj.Set(key, val)
	return v
}

// Index returns the i'th element of an Array value.
func (v Value) Index(i int) (Value, bool) {
	arr, ok := v.AsArray()
	if !ok || i < 0 || i >= len(arr) {
		return Null, false
	}
	return arr[i], true
}

// Truthy implements the condition language's notion of truthiness:
// false/0/""/null/empty array/empty object are false, everything else
// is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return v.obj != nil && v.obj.Len() > 0
	}
	return false
}

// Equal implements the condition language's `==`/`!=` operators.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		// Allow number/string of equal textual form to stay false; the
		// condition grammar requires same-kind comparison per spec.
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.obj == nil || other.obj == nil {
			return v.obj == other.obj
		}
		if v.obj.Len() != other.obj.Len() {
			return false
		}
		for pair := v.obj.Oldest(); pair != nil; pair = pair.Next() {
			ov, ok := other.obj.Get(pair.Key)
			if !ok || !pair.Value.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for template substitution: strings render
// unquoted, everything else renders as compact JSON.
func (v Value) String() string {
	if s, ok := v.AsString(); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unrenderable:%s>", v.kind)
	}
	return string(data)
}

// FromAny converts an untyped `any` (as produced by encoding/json or
// yaml.v3 decoding into interface{}) into a Value. Map key order is
// not recoverable from `any`, so object keys are inserted in sorted
// order; UnmarshalJSON and UnmarshalYAML preserve authored order.
func FromAny(in any) Value {
	switch t := in.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{kind: KindArray, arr: items}
	case map[string]any:
		obj := NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj = obj.Set(k, FromAny(t[k]))
		}
		return obj
	case Value:
		return t
	default:
		return Null
	}
}

// ToAny converts a Value back into an untyped `any` tree, suitable for
// encoding/json or passing to expr-lang's evaluator.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any)
		if v.obj != nil {
			for pair := v.obj.Oldest(); pair != nil; pair = pair.Next() {
				out[pair.Key] = pair.Value.ToAny()
			}
		}
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		var buf []byte
		buf = append(buf, '{')
		i := 0
		for pair := v.obj.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyJSON, err := json.Marshal(pair.Key)
			if err != nil {
				return nil, err
			}
			valJSON, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			buf = append(buf, valJSON...)
			i++
		}
		buf = append(buf, '}')
		return buf, nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key
// order by walking the token stream directly rather than decoding
// into map[string]any (which discards order).
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null, err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null, err
			}
			return Value{kind: KindArray, arr: items}, nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				obj = obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null, err
			}
			return obj, nil
		}
	}
	return Null, fmt.Errorf("value: unexpected token %T", tok)
}
