package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusql/planner/value"
)

func TestFieldNumberStableAndInRange(t *testing.T) {
	n1 := FieldNumber("email")
	n2 := FieldNumber("email")
	assert.Equal(t, n1, n2)
	assert.GreaterOrEqual(t, n1, int32(1))
	assert.LessOrEqual(t, n1, int32(maxFieldNumber))
}

func TestFieldNumberAvoidsReservedRange(t *testing.T) {
	for _, name := range []string{"a", "b", "c", "email", "age", "created_at", "x", "y", "z", "longer_field_name_here"} {
		n := FieldNumber(name)
		assert.False(t, n >= reservedFieldNumberLow && n <= reservedFieldNumberHigh, "field %q landed in reserved range: %d", name, n)
	}
}

func TestFieldNumberDiffersAcrossNames(t *testing.T) {
	assert.NotEqual(t, FieldNumber("email"), FieldNumber("age"))
}

func TestEncodeDecodeKeyRoundTrip(t *testing.T) {
	elems := []value.Value{
		value.NewInt(-42),
		value.NewString("hello\x00world"),
		value.NewBool(true),
		value.NewDouble(3.14),
	}

	encoded := EncodeKey(elems)

	rest := encoded
	for _, want := range elems {
		var got value.Value
		var ok bool
		got, rest, ok = DecodeKeyElement(rest)
		require.True(t, ok)
		assert.True(t, value.Equal(want, got), "want %v got %v", want, got)
	}
	assert.Empty(t, rest)
}

func TestKeyEncodingPreservesOrder(t *testing.T) {
	ints := []int64{-100, -1, 0, 1, 42, 1000}
	var keys [][]byte
	for _, i := range ints {
		keys = append(keys, EncodeKeyElement(value.NewInt(i)))
	}
	for i := 1; i < len(keys); i++ {
		assert.True(t, string(keys[i-1]) < string(keys[i]), "expected ordering to be preserved at index %d", i)
	}
}

func TestCoveringPayloadRoundTrip(t *testing.T) {
	entries := []CoveringEntry{
		{Field: "age", Value: value.NewInt(30)},
		{Field: "name", Value: value.NewString("ada")},
		{Field: "active", Value: value.NewBool(true)},
		{Field: "score", Value: value.NewDouble(9.5)},
		{Field: "createdAt", Value: value.NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	payload, err := EncodeCoveringPayload(entries)
	require.NoError(t, err)

	kinds := map[int32]FieldKind{
		FieldNumber("age"):       KindInt,
		FieldNumber("name"):      KindString,
		FieldNumber("active"):    KindBool,
		FieldNumber("score"):     KindDouble,
		FieldNumber("createdAt"): KindTimestamp,
	}

	decoded, err := DecodeCoveringPayload(payload, kinds)
	require.NoError(t, err)

	for _, e := range entries {
		got, ok := decoded[FieldNumber(e.Field)]
		require.True(t, ok, "missing field %q", e.Field)
		if e.Value.Tag() == value.Timestamp {
			wantTS, _ := e.Value.AsTimestamp()
			gotTS, _ := got.AsTimestamp()
			assert.True(t, wantTS.Equal(gotTS))
			continue
		}
		assert.True(t, value.Equal(e.Value, got), "field %q: want %v got %v", e.Field, e.Value, got)
	}
}

func TestCoveringPayloadSkipsUnknownFieldNumbers(t *testing.T) {
	entries := []CoveringEntry{
		{Field: "known", Value: value.NewInt(1)},
		{Field: "unknown", Value: value.NewString("skip me")},
	}
	payload, err := EncodeCoveringPayload(entries)
	require.NoError(t, err)

	decoded, err := DecodeCoveringPayload(payload, map[int32]FieldKind{FieldNumber("known"): KindInt})
	require.NoError(t, err)

	assert.Len(t, decoded, 1)
	_, ok := decoded[FieldNumber("unknown")]
	assert.False(t, ok)
}

func TestCoveringPayloadOmitsNullValues(t *testing.T) {
	entries := []CoveringEntry{
		{Field: "maybeNull", Value: value.NewNull()},
	}
	payload, err := EncodeCoveringPayload(entries)
	require.NoError(t, err)
	assert.Empty(t, payload)
}
