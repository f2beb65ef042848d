// Package jsonvalue decodes arbitrary JSON into an explicit tagged variant so that
// documents of unknown shape can be searched without reflection. Mappings keep the
// order in which their keys appear in the source document.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	Text
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case Text:
		return "text"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is one node of a decoded JSON document. The zero Value is Null.
type Value struct {
	kind   Kind
	b      bool
	s      string // number literal or text
	items  []Value
	keys   []string
	fields map[string]Value
}

func NewBool(b bool) Value     { return Value{kind: Bool, b: b} }
func NewText(s string) Value   { return Value{kind: Text, s: s} }
func NewNumber(n string) Value { return Value{kind: Number, s: n} }

func NewSequence(items ...Value) Value {
	return Value{kind: Sequence, items: items}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == Bool
}

func (v Value) Text() (string, bool) {
	return v.s, v.kind == Text
}

// Number returns the literal as written in the document, e.g. "19.9".
func (v Value) Number() (string, bool) {
	return v.s, v.kind == Number
}

func (v Value) Items() []Value {
	if v.kind != Sequence {
		return nil
	}
	return v.items
}

// Keys returns mapping keys in encounter order.
func (v Value) Keys() []string {
	if v.kind != Mapping {
		return nil
	}
	return v.keys
}

func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

func (v Value) Get(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Path walks nested mappings; it reports false as soon as one key is missing.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Truthy follows the usual scripting notion of truth: null, false, zero, "" and
// empty containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return v.s != ""
		}
		return f != 0
	case Text:
		return v.s != ""
	case Sequence:
		return len(v.items) > 0
	case Mapping:
		return len(v.keys) > 0
	default:
		return false
	}
}

// Scalar renders text and number values as a string.
func (v Value) Scalar() (string, bool) {
	if v.kind == Text || v.kind == Number {
		return v.s, true
	}
	return "", false
}

var errTrailingData = errors.New("jsonvalue: unexpected data after top-level value")

func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errTrailingData
	}
	return v, nil
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeMapping(dec)
		case '[':
			return decodeSequence(dec)
		}
		return Value{}, fmt.Errorf("jsonvalue: unexpected delimiter %q", t)
	case bool:
		return NewBool(t), nil
	case json.Number:
		return NewNumber(t.String()), nil
	case string:
		return NewText(t), nil
	case nil:
		return Value{}, nil
	}
	return Value{}, fmt.Errorf("jsonvalue: unexpected token %v", tok)
}

func decodeMapping(dec *json.Decoder) (Value, error) {
	v := Value{kind: Mapping, fields: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("jsonvalue: expected object key, got %v", tok)
		}
		field, err := decode(dec)
		if err != nil {
			return Value{}, err
		}
		// duplicate keys keep their first position and the last value
		if _, seen := v.fields[key]; !seen {
			v.keys = append(v.keys, key)
		}
		v.fields[key] = field
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeSequence(dec *json.Decoder) (Value, error) {
	v := Value{kind: Sequence, items: []Value{}}
	for dec.More() {
		item, err := decode(dec)
		if err != nil {
			return Value{}, err
		}
		v.items = append(v.items, item)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}
