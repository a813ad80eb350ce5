package cache

import "fmt"

// Value is the intermediate representation of a cache document. It is one
// of Null, Bool, Uint, Int, Str, MaybeStr, Array or Map.
type Value interface {
	// Kind names the variant, used in diagnostics.
	Kind() string
	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Uint is an unsigned integer value.
type Uint uint64

// Int is a signed integer value.
type Int int64

// Str is a string value.
type Str string

// MaybeStr is an optional string. A nil Value means "absent", which is
// distinct from the empty string.
type MaybeStr struct {
	Value *string
}

// Array is an ordered sequence of values.
type Array []Value

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   string
	Value Value
}

// Map is an ordered list of entries. Keys are unique.
type Map []Entry

func (Null) isValue()     {}
func (Bool) isValue()     {}
func (Uint) isValue()     {}
func (Int) isValue()      {}
func (Str) isValue()      {}
func (MaybeStr) isValue() {}
func (Array) isValue()    {}
func (Map) isValue()      {}

// Kind implements Value.
func (Null) Kind() string { return "null" }

// Kind implements Value.
func (Bool) Kind() string { return "bool" }

// Kind implements Value.
func (Uint) Kind() string { return "uint" }

// Kind implements Value.
func (Int) Kind() string { return "int" }

// Kind implements Value.
func (Str) Kind() string { return "str" }

// Kind implements Value.
func (MaybeStr) Kind() string { return "maybe-str" }

// Kind implements Value.
func (Array) Kind() string { return "array" }

// Kind implements Value.
func (Map) Kind() string { return "map" }

// Some returns a present MaybeStr.
func Some(s string) MaybeStr {
	return MaybeStr{Value: &s}
}

// None returns an absent MaybeStr.
func None() MaybeStr {
	return MaybeStr{}
}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// mapBuilder appends entries, leaving out empty collections and absent
// optional values.
type mapBuilder struct {
	m Map
}

func (b *mapBuilder) put(key string, v Value) {
	b.m = append(b.m, Entry{Key: key, Value: v})
}

func (b *mapBuilder) str(key, s string) {
	if s != "" {
		b.put(key, Str(s))
	}
}

func (b *mapBuilder) maybe(key, s string) {
	if s != "" {
		b.put(key, Some(s))
	}
}

func (b *mapBuilder) uint(key string, u uint64) {
	if u != 0 {
		b.put(key, Uint(u))
	}
}

func (b *mapBuilder) strs(key string, ss []string) {
	if len(ss) == 0 {
		return
	}
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = Str(s)
	}
	b.put(key, arr)
}

func (b *mapBuilder) array(key string, arr Array) {
	if len(arr) > 0 {
		b.put(key, arr)
	}
}

func (b *mapBuilder) sub(key string, m Map) {
	if len(m) > 0 {
		b.put(key, m)
	}
}

func describe(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s value", v.Kind())
}
