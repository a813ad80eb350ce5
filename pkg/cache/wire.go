package cache

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Each value is framed as a protobuf-wire message holding exactly one field
// whose number selects the variant.
const (
	fieldNull     protowire.Number = 1
	fieldBool     protowire.Number = 2
	fieldUint     protowire.Number = 3
	fieldInt      protowire.Number = 4
	fieldStr      protowire.Number = 5
	fieldMaybeStr protowire.Number = 6
	fieldArray    protowire.Number = 7
	fieldMap      protowire.Number = 8
)

// Fields inside nested messages.
const (
	fieldItem       protowire.Number = 1 // array element, map entry, maybe-str payload
	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

// appendValue appends the wire form of v to b.
func appendValue(b []byte, v Value) []byte {
	switch v := v.(type) {
	case nil, Null:
		b = protowire.AppendTag(b, fieldNull, protowire.VarintType)
		b = protowire.AppendVarint(b, 0)
	case Bool:
		b = protowire.AppendTag(b, fieldBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(bool(v)))
	case Uint:
		b = protowire.AppendTag(b, fieldUint, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	case Int:
		b = protowire.AppendTag(b, fieldInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	case Str:
		b = protowire.AppendTag(b, fieldStr, protowire.BytesType)
		b = protowire.AppendString(b, string(v))
	case MaybeStr:
		var inner []byte
		if v.Value != nil {
			inner = protowire.AppendTag(inner, fieldItem, protowire.BytesType)
			inner = protowire.AppendString(inner, *v.Value)
		}
		b = protowire.AppendTag(b, fieldMaybeStr, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case Array:
		var inner []byte
		for _, item := range v {
			inner = protowire.AppendTag(inner, fieldItem, protowire.BytesType)
			inner = protowire.AppendBytes(inner, appendValue(nil, item))
		}
		b = protowire.AppendTag(b, fieldArray, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case Map:
		var inner []byte
		for _, e := range v {
			var entry []byte
			entry = protowire.AppendTag(entry, fieldEntryKey, protowire.BytesType)
			entry = protowire.AppendString(entry, e.Key)
			entry = protowire.AppendTag(entry, fieldEntryValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, appendValue(nil, e.Value))

			inner = protowire.AppendTag(inner, fieldItem, protowire.BytesType)
			inner = protowire.AppendBytes(inner, entry)
		}
		b = protowire.AppendTag(b, fieldMap, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	default:
		panic(fmt.Sprintf("cache: unsupported value type %T", v))
	}
	return b
}

// Marshal returns the wire form of v.
func Marshal(v Value) []byte {
	return appendValue(nil, v)
}

// Unmarshal parses the wire form of a single value.
func Unmarshal(b []byte) (Value, error) {
	return parseValue(b, 0)
}

func parseValue(b []byte, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nesting exceeds %d levels", maxDepth)
	}
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, fmt.Errorf("reading value tag: %w", protowire.ParseError(n))
	}
	b = b[n:]

	var v Value
	switch num {
	case fieldNull, fieldBool, fieldUint, fieldInt:
		if typ != protowire.VarintType {
			return nil, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
		}
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldNull:
			v = Null{}
		case fieldBool:
			v = Bool(protowire.DecodeBool(x))
		case fieldUint:
			v = Uint(x)
		default:
			v = Int(protowire.DecodeZigZag(x))
		}
	case fieldStr, fieldMaybeStr, fieldArray, fieldMap:
		if typ != protowire.BytesType {
			return nil, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
		}
		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		var err error
		switch num {
		case fieldStr:
			v = Str(payload)
		case fieldMaybeStr:
			v, err = parseMaybeStr(payload)
		case fieldArray:
			v, err = parseArray(payload, depth)
		default:
			v, err = parseMap(payload, depth)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown value variant %d", num)
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after %s", len(b), v.Kind())
	}
	return v, nil
}

// consumeItems walks a nested message of repeated length-delimited fields.
func consumeItems(b []byte, fn func(num protowire.Number, payload []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			return fmt.Errorf("field %d: unexpected wire type %d", num, typ)
		}
		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(num, payload); err != nil {
			return err
		}
	}
	return nil
}

func parseMaybeStr(b []byte) (Value, error) {
	ms := MaybeStr{}
	err := consumeItems(b, func(num protowire.Number, payload []byte) error {
		if num != fieldItem {
			return fmt.Errorf("maybe-str: unknown field %d", num)
		}
		s := string(payload)
		ms.Value = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ms, nil
}

func parseArray(b []byte, depth int) (Value, error) {
	arr := Array{}
	err := consumeItems(b, func(num protowire.Number, payload []byte) error {
		if num != fieldItem {
			return fmt.Errorf("array: unknown field %d", num)
		}
		item, err := parseValue(payload, depth+1)
		if err != nil {
			return err
		}
		arr = append(arr, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arr, nil
}

func parseMap(b []byte, depth int) (Value, error) {
	m := Map{}
	err := consumeItems(b, func(num protowire.Number, payload []byte) error {
		if num != fieldItem {
			return fmt.Errorf("map: unknown field %d", num)
		}
		var (
			key      string
			value    Value
			hasKey   bool
			hasValue bool
		)
		err := consumeItems(payload, func(num protowire.Number, field []byte) error {
			switch num {
			case fieldEntryKey:
				key, hasKey = string(field), true
			case fieldEntryValue:
				v, err := parseValue(field, depth+1)
				if err != nil {
					return err
				}
				value, hasValue = v, true
			default:
				return fmt.Errorf("map entry: unknown field %d", num)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !hasKey || !hasValue {
			return fmt.Errorf("map entry is missing its key or value")
		}
		m = append(m, Entry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
