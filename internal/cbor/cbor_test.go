package cbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Uint(42),
		NegInt(-17),
		Bytes([]byte{0x01, 0x02, 0x03}),
		Text("hello"),
		Bool(true),
		Bool(false),
		Null(),
		Float(3.5),
		Array(Uint(1), Uint(2), Text("three")),
	}

	for _, v := range cases {
		encoded, err := Encode(v)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, v.Kind(), decoded.Kind())
	}
}

func TestMapPreservesIntAndTextKeys(t *testing.T) {
	v := NewMap(
		MapEntry{Key: Uint(1), Value: Text("int-keyed")},
		MapEntry{Key: Text("1"), Value: Text("text-keyed")},
	)

	encoded, err := Encode(v)
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, KindMap, decoded.Kind())
	m := decoded.Map()
	require.Equal(t, 2, m.Len())

	byInt, ok := m.GetInt(1)
	require.True(t, ok)
	assert.Equal(t, "int-keyed", byInt.Text())

	byText, ok := m.GetText("1")
	require.True(t, ok)
	assert.Equal(t, "text-keyed", byText.Text())
}

func TestGetIntMatchesNegativeKeys(t *testing.T) {
	v := NewMap(MapEntry{Key: NegInt(-1), Value: Bytes([]byte{0xAB})})
	m := v.Map()

	got, ok := m.GetInt(-1)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAB}, got.Bytes())

	_, ok = m.GetInt(-2)
	assert.False(t, ok)
}

func TestDecodeFirstReportsRemainingBytes(t *testing.T) {
	first, err := Encode(Uint(1))
	require.NoError(t, err)
	second, err := Encode(Text("tail"))
	require.NoError(t, err)

	v, rest, err := DecodeFirst(append(append([]byte(nil), first...), second...))
	require.NoError(t, err)
	assert.Equal(t, KindUint, v.Kind())
	assert.Equal(t, second, rest)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	first, err := Encode(Uint(1))
	require.NoError(t, err)
	garbage := append(append([]byte(nil), first...), 0x00)

	_, err = Decode(garbage)
	assert.Error(t, err)
}

func TestMapOnNonMapValueIsNil(t *testing.T) {
	v := Uint(7)
	assert.Nil(t, v.Map())
}

func TestUndefinedRoundTrips(t *testing.T) {
	encoded, err := Encode(Undefined())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf7}, encoded)

	v, rest, err := DecodeFirst(encoded)
	require.NoError(t, err)
	assert.Equal(t, KindUndefined, v.Kind())
	assert.Empty(t, rest)
}
