// Package cbor implements a minimal CBOR (RFC 8949) codec that preserves
// the distinction between integer and text map keys. This matters for
// COSE keys and attestation objects, whose maps are keyed by small
// integers (1, 3, -1, -2, -3, ...); a decoder that coerces every map into
// a string-keyed dictionary makes those keys unreachable.
//
// The codec is a thin, type-preserving wrapper around
// github.com/fxamacker/cbor/v2: that library already decodes into
// map[interface{}]interface{} without merging key kinds, so this package
// only needs to walk the result into the tagged Value tree below and
// provide a handful of accessors the rest of the module wants.
package cbor

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// Kind identifies the CBOR major-type variant held by a Value.
type Kind int

const (
	KindUint Kind = iota
	KindNegInt
	KindBytes
	KindText
	KindArray
	KindMap
	KindTag
	KindBool
	KindNull
	KindUndefined
	KindFloat
)

// Value is a tagged union over the CBOR data model, per RFC 8949 major
// types 0-7.
type Value struct {
	kind Kind

	u    uint64
	n    int64
	b    []byte
	s    string
	f    float64
	boo  bool
	arr  []Value
	m    *Map
	tagN uint64
	tagV *Value
}

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// Uint returns the value's unsigned integer payload. Only meaningful when
// Kind() == KindUint.
func (v Value) Uint() uint64 { return v.u }

// NegInt returns the value's negative integer payload. Only meaningful
// when Kind() == KindNegInt. The value is already negative (e.g. -1, not
// the CBOR "one's complement" argument).
func (v Value) NegInt() int64 { return v.n }

// Int returns the value as a signed integer regardless of whether it was
// encoded as an unsigned or negative integer. Returns an error for any
// other kind.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case KindUint:
		if v.u > uint64(1<<63-1) {
			return 0, fmt.Errorf("cbor: unsigned value %d overflows int64", v.u)
		}
		return int64(v.u), nil
	case KindNegInt:
		return v.n, nil
	default:
		return 0, fmt.Errorf("cbor: value of kind %d is not an integer", v.kind)
	}
}

// Bytes returns the value's byte-string payload.
func (v Value) Bytes() []byte { return v.b }

// Text returns the value's text-string payload.
func (v Value) Text() string { return v.s }

// Bool returns the value's boolean payload.
func (v Value) Bool() bool { return v.boo }

// Float returns the value's floating point payload.
func (v Value) Float() float64 { return v.f }

// Array returns the value's array elements.
func (v Value) Array() []Value { return v.arr }

// Map returns the value's map, or nil if this Value is not a map.
func (v Value) Map() *Map { return v.m }

// Tag returns the tag number and wrapped value. Only meaningful when
// Kind() == KindTag.
func (v Value) Tag() (uint64, Value) { return v.tagN, *v.tagV }

// MapEntry is a single key/value pair of a CBOR map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is a CBOR map held as an ordered entry list that can be looked up by
// either integer or text key without conflating the two key spaces. A map
// built with NewMap keeps the order it was given; a decoded map does not
// keep the order of the encoded bytes: its entries are sorted with integer
// keys first (ascending), then text keys (ascending).
type Map struct {
	entries []MapEntry
}

// Entries returns the map's entries in the map's entry order (see Map).
func (m *Map) Entries() []MapEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// GetInt looks up a value by integer key (matches KindUint and KindNegInt
// keys holding the same numeric value).
func (m *Map) GetInt(key int64) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if n, err := e.Key.Int(); err == nil && n == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// GetText looks up a value by text key.
func (m *Map) GetText(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if e.Key.kind == KindText && e.Key.s == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Decode parses a single CBOR-encoded value from b. Any trailing bytes are
// an error; use DecodeFirst to parse a prefix.
func Decode(b []byte) (Value, error) {
	v, rest, err := DecodeFirst(b)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("cbor: %d trailing bytes after value", len(rest))
	}
	return v, nil
}

// DecodeFirst parses the first CBOR-encoded value from b and returns it
// along with any remaining, unconsumed bytes.
func DecodeFirst(b []byte) (Value, []byte, error) {
	// The "undefined" simple value (major type 7, value 23, single byte
	// 0xf7) has no first-class representation once decoded into `any` by
	// the underlying library, so it is recognised here before delegating.
	if len(b) > 0 && b[0] == 0xf7 {
		return Value{kind: KindUndefined}, b[1:], nil
	}
	r := &byteReader{b: b}
	dec := cbor.NewDecoder(r)
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, nil, fmt.Errorf("cbor: decode: %w", err)
	}
	consumed := dec.NumBytesRead()
	v, err := fromAny(raw)
	if err != nil {
		return Value{}, nil, err
	}
	return v, b[consumed:], nil
}

// byteReader adapts a byte slice to io.Reader, letting cbor.Decoder track
// how many bytes it actually consumed via NumBytesRead.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func fromAny(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{kind: KindNull}, nil
	case bool:
		return Value{kind: KindBool, boo: x}, nil
	case uint64:
		return Value{kind: KindUint, u: x}, nil
	case int64:
		if x >= 0 {
			return Value{kind: KindUint, u: uint64(x)}, nil
		}
		return Value{kind: KindNegInt, n: x}, nil
	case []byte:
		return Value{kind: KindBytes, b: x}, nil
	case string:
		return Value{kind: KindText, s: x}, nil
	case float64:
		return Value{kind: KindFloat, f: x}, nil
	case []interface{}:
		arr := make([]Value, len(x))
		for i, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[interface{}]interface{}:
		m := &Map{entries: make([]MapEntry, 0, len(x))}
		keys := make([]interface{}, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sortMapKeys(keys)
		for _, k := range keys {
			kv, err := fromAny(k)
			if err != nil {
				return Value{}, err
			}
			vv, err := fromAny(x[k])
			if err != nil {
				return Value{}, err
			}
			m.entries = append(m.entries, MapEntry{Key: kv, Value: vv})
		}
		return Value{kind: KindMap, m: m}, nil
	case cbor.Tag:
		inner, err := fromAny(x.Content)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindTag, tagN: x.Number, tagV: &inner}, nil
	default:
		return Value{}, fmt.Errorf("cbor: unsupported decoded type %T", raw)
	}
}

// sortMapKeys orders map keys deterministically (ints before strings,
// ascending within each kind) so repeated decodes of the same bytes
// produce the same entry order for tests and logging.
func sortMapKeys(keys []interface{}) {
	rank := func(k interface{}) (int, *big.Int, string) {
		switch v := k.(type) {
		case uint64:
			return 0, new(big.Int).SetUint64(v), ""
		case int64:
			return 0, big.NewInt(v), ""
		case string:
			return 1, nil, v
		default:
			return 2, nil, fmt.Sprintf("%v", v)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, bi, si := rank(keys[i])
		rj, bj, sj := rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			return bi.Cmp(bj) < 0
		}
		return si < sj
	})
}

// Encode serialises a Value back into CBOR bytes, sufficient for the
// round-trip coverage this module tests (booleans, null, integers, byte
// and text strings, arrays, and maps keyed by integers or text).
func Encode(v Value) ([]byte, error) {
	if v.kind == KindUndefined {
		return []byte{0xf7}, nil
	}
	any, err := toAny(v)
	if err != nil {
		return nil, err
	}
	b, err := cbor.Marshal(any)
	if err != nil {
		return nil, fmt.Errorf("cbor: encode: %w", err)
	}
	return b, nil
}

func toAny(v Value) (interface{}, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boo, nil
	case KindUint:
		return v.u, nil
	case KindNegInt:
		return v.n, nil
	case KindBytes:
		return v.b, nil
	case KindText:
		return v.s, nil
	case KindFloat:
		return v.f, nil
	case KindArray:
		arr := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			a, err := toAny(e)
			if err != nil {
				return nil, err
			}
			arr[i] = a
		}
		return arr, nil
	case KindMap:
		m := make(map[interface{}]interface{}, v.m.Len())
		for _, e := range v.m.Entries() {
			k, err := toAny(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := toAny(e.Value)
			if err != nil {
				return nil, err
			}
			m[k] = val
		}
		return m, nil
	case KindTag:
		inner, err := toAny(*v.tagV)
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: v.tagN, Content: inner}, nil
	default:
		return nil, fmt.Errorf("cbor: cannot encode kind %d", v.kind)
	}
}

// Constructors used by tests and callers building values by hand.

func Uint(n uint64) Value     { return Value{kind: KindUint, u: n} }
func NegInt(n int64) Value    { return Value{kind: KindNegInt, n: n} }
func Bytes(b []byte) Value    { return Value{kind: KindBytes, b: b} }
func Text(s string) Value     { return Value{kind: KindText, s: s} }
func Bool(b bool) Value       { return Value{kind: KindBool, boo: b} }
func Null() Value             { return Value{kind: KindNull} }
func Undefined() Value        { return Value{kind: KindUndefined} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// NewMap builds a Map from the given entries, preserving their order.
func NewMap(entries ...MapEntry) Value {
	return Value{kind: KindMap, m: &Map{entries: entries}}
}
