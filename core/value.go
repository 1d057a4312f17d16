package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the JSON value variants a Value can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
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

// Value is a structured JSON value (tagged union of null, bool, number,
// string, array and object). The zero Value is null.
//
// Numbers keep their literal text so a value read from JSON encodes back to
// the same digits.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  Object
}

// Object is a JSON object of structured values.
type Object map[string]Value

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float. NaN and infinities have no JSON form and become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// Int wraps an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array wraps a list of values.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Value wraps the object as a Value.
func (o Object) Value() Value {
	if o == nil {
		o = Object{}
	}
	return Value{kind: KindObject, obj: o}
}

// ErrorValue builds the {"error": message} payload used for failed tool calls.
func ErrorValue(message string) Value {
	return Object{"error": String(message)}.Value()
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsFloat returns the number held by v as float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// AsInt returns the number held by v when it is integral.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if i, err := v.num.Int64(); err == nil {
		return i, true
	}
	f, err := v.num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsArray returns the items held by v.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object held by v.
func (v Value) AsObject() (Object, bool) { return v.obj, v.kind == KindObject }

// Interface converts v into plain Go values (nil, bool, float64, string,
// []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, _ := v.num.Float64()
		return f
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String returns the compact JSON encoding of v.
func (v Value) String() string {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.String()
}

// MarshalJSON implements json.Marshaler. Object keys are emitted sorted.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if v.num == "" {
			buf.WriteByte('0')
			return
		}
		buf.WriteString(string(v.num))
	case KindString:
		encodeString(buf, v.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.encode(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			v.obj[k].encode(buf)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

// encodeString writes s as a JSON string without HTML escaping so URLs and
// markup survive unchanged.
func encodeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := decodeValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Object) MarshalJSON() ([]byte, error) { return o.Value().MarshalJSON() }

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := decodeValue(data)
	if err != nil {
		return err
	}
	obj, ok := parsed.AsObject()
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", parsed.Kind())
	}
	*o = obj
	return nil
}

// Decode stores the object in the value pointed to by dst through its JSON
// encoding, the same way encoding/json would decode the argument text.
func (o Object) Decode(dst any) error {
	data, err := o.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	v, ok := o[key]
	return v, ok
}

// String returns the string stored under key.
func (o Object) String(key string) (string, bool) { return o[key].AsString() }

// Float returns the number stored under key.
func (o Object) Float(key string) (float64, bool) { return o[key].AsFloat() }

// Int returns the integral number stored under key.
func (o Object) Int(key string) (int64, bool) { return o[key].AsInt() }

// ParseValue parses JSON text into a Value.
func ParseValue(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return Value{}, errors.New("empty JSON text")
	}
	return decodeValue([]byte(text))
}

// ParseObject parses tool-call argument text. Empty text and a literal null
// yield an empty object; any other non-object JSON is an error.
func ParseObject(text string) (Object, error) {
	if strings.TrimSpace(text) == "" {
		return Object{}, nil
	}
	v, err := decodeValue([]byte(text))
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case KindNull:
		return Object{}, nil
	case KindObject:
		return v.obj, nil
	default:
		return nil, fmt.Errorf("expected JSON object, got %s", v.Kind())
	}
}

// ValueOf converts any JSON-serializable Go value into a Value.
func ValueOf(in any) (Value, error) {
	switch x := in.(type) {
	case Value:
		return x, nil
	case Object:
		return x.Value(), nil
	case nil:
		return Null(), nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return Value{}, fmt.Errorf("encode value: %w", err)
	}
	return decodeValue(data)
}

func decodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("invalid JSON: trailing data after value")
	}
	return fromAny(raw), nil
}

func fromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case json.Number:
		return Value{kind: KindNumber, num: x}
	case float64:
		return Number(x)
	case string:
		return String(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = fromAny(item)
		}
		return Array(items...)
	case map[string]any:
		obj := make(Object, len(x))
		for k, item := range x {
			obj[k] = fromAny(item)
		}
		return obj.Value()
	default:
		return String(fmt.Sprint(x))
	}
}
