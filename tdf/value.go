package tdf

import (
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindObject
	KindList
)

// Value is a node of the parsed TDF tree. Leaves keep their raw text so that
// identifiers such as "0042" are not altered by the numeric view.
type Value struct {
	kind   Kind
	text   string
	num    float64
	keys   []string
	fields map[string]Value
	items  []Value
}

func stringValue(s string) Value {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil && s != "" {
		return Value{kind: KindNumber, text: s, num: n}
	}
	return Value{kind: KindString, text: s}
}

func newObject() Value {
	return Value{kind: KindObject, fields: make(map[string]Value)}
}

func listOf(items ...Value) Value {
	return Value{kind: KindList, items: items}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }

// set stores a field, turning repeated names into a list.
func (v *Value) set(name string, child Value) {
	existing, ok := v.fields[name]
	if !ok {
		v.keys = append(v.keys, name)
		v.fields[name] = child
		return
	}
	if existing.kind == KindList {
		existing.items = append(existing.items, child)
		v.fields[name] = existing
		return
	}
	v.fields[name] = listOf(existing, child)
}

// Get returns the named field of an object, or a null Value.
func (v Value) Get(name string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	return v.fields[name]
}

// Path walks nested object fields.
func (v Value) Path(names ...string) Value {
	cur := v
	for _, n := range names {
		cur = cur.Get(n)
	}
	return cur
}

// Keys returns object field names in document order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// List coerces the value to a list: null is empty, a list is returned as is,
// anything else becomes a list of one.
func (v Value) List() []Value {
	switch v.kind {
	case KindNull:
		return nil
	case KindList:
		return v.items
	default:
		return []Value{v}
	}
}

// String returns leaf text. Objects yield their "#text" content, if any.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindObject:
		return v.Get(textKey).String()
	}
	return ""
}

// Int returns the integer view of a numeric leaf.
func (v Value) Int() (int, bool) {
	if v.kind == KindObject {
		return v.Get(textKey).Int()
	}
	if v.kind != KindNumber {
		return 0, false
	}
	n, err := strconv.Atoi(v.text)
	if err != nil {
		return int(v.num), v.num == float64(int(v.num))
	}
	return n, true
}

// IntOr returns the integer view or def.
func (v Value) IntOr(def int) int {
	if n, ok := v.Int(); ok {
		return n
	}
	return def
}
