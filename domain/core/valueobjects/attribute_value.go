package valueobjects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variants of an AttributeValue.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// AttributeValue is an immutable tagged scalar: an int64, a string or a bool.
// The zero value is invalid and never equal to anything.
type AttributeValue struct {
	kind Kind
	i    int64
	s    string
	b    bool
}

// IntValue creates an integer attribute value
func IntValue(v int64) AttributeValue {
	return AttributeValue{kind: KindInt, i: v}
}

// StringValue creates a string attribute value
func StringValue(v string) AttributeValue {
	return AttributeValue{kind: KindString, s: v}
}

// BoolValue creates a boolean attribute value
func BoolValue(v bool) AttributeValue {
	return AttributeValue{kind: KindBool, b: v}
}

// Kind returns the variant held by the value
func (v AttributeValue) Kind() Kind {
	return v.kind
}

// IsValid reports whether the value was built by one of the constructors
func (v AttributeValue) IsValid() bool {
	return v.kind != KindInvalid
}

// Int returns the integer payload and whether the value is an int
func (v AttributeValue) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Str returns the string payload and whether the value is a string
func (v AttributeValue) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Bool returns the boolean payload and whether the value is a bool
func (v AttributeValue) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Equal compares structurally. Values of different kinds are never equal;
// there is no coercion between ints and strings.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == other.i
	case KindString:
		return v.s == other.s
	case KindBool:
		return v.b == other.b
	default:
		return false
	}
}

// String renders the value the way it would appear as a literal in a condition
func (v AttributeValue) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON emits the bare JSON scalar
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return nil, errors.New("cannot marshal invalid attribute value")
	}
}

// taggedValue is the object form older clients send,
// e.g. {"value_int": 5} or {"value_string": "x"}.
type taggedValue struct {
	ValueInt    *json.Number `json:"value_int"`
	ValueString *string      `json:"value_string"`
	ValueBool   *bool        `json:"value_bool"`
	ValueFloat  *json.Number `json:"value_float"`
}

// UnmarshalJSON accepts a bare scalar or the tagged object form.
// Non-integer numbers are rejected.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("attribute value cannot be null")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '{':
		return v.unmarshalTagged(data)
	default:
		parsed, err := parseInt(string(data))
		if err != nil {
			return err
		}
		*v = IntValue(parsed)
		return nil
	}
}

func (v *AttributeValue) unmarshalTagged(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tagged taggedValue
	if err := dec.Decode(&tagged); err != nil {
		return fmt.Errorf("invalid attribute value: %w", err)
	}

	set := 0
	for _, present := range []bool{tagged.ValueInt != nil, tagged.ValueString != nil, tagged.ValueBool != nil, tagged.ValueFloat != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.New("attribute value object must carry exactly one of value_int, value_string, value_bool")
	}

	switch {
	case tagged.ValueInt != nil:
		parsed, err := parseInt(tagged.ValueInt.String())
		if err != nil {
			return err
		}
		*v = IntValue(parsed)
	case tagged.ValueString != nil:
		*v = StringValue(*tagged.ValueString)
	case tagged.ValueBool != nil:
		*v = BoolValue(*tagged.ValueBool)
	default:
		return errors.New("floating point attribute values are not supported")
	}
	return nil
}

func parseInt(raw string) (int64, error) {
	if strings.ContainsAny(raw, ".eE") {
		return 0, fmt.Errorf("attribute value %s is not an integer", raw)
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute value %s is not a 64-bit integer", raw)
	}
	return parsed, nil
}

// Attributes maps attribute names to values.
type Attributes map[string]AttributeValue

// Lookup returns the value stored under key
func (a Attributes) Lookup(key string) (AttributeValue, bool) {
	v, ok := a[key]
	return v, ok
}

// Clone returns a shallow copy; values are immutable so this is a full copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same keys with equal values
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Keys returns the attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
