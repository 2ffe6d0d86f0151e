package codec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/janusql/planner/value"
)

// CoveringEntry is one field of a covering index entry: the field's
// stable FieldNumber plus its stored value, as produced by an index-only
// scan that never touches the base record (spec §6's covering
// reconstruction).
type CoveringEntry struct {
	Field string
	Value value.Value
}

// EncodeCoveringPayload serializes entries into a protobuf-wire-format
// byte string keyed by FieldNumber(entry.Field), so a covering scan's
// stored columns can be decoded directly into field values without
// needing the field's name at decode time. Built against
// google.golang.org/protobuf/encoding/protowire rather than generated
// .proto types, since the field set is schema-driven at plan time, not
// fixed at compile time.
func EncodeCoveringPayload(entries []CoveringEntry) ([]byte, error) {
	var out []byte
	for _, e := range entries {
		num := protowire.Number(FieldNumber(e.Field))
		switch e.Value.Tag() {
		case value.Null:
			continue // absent field number means null on decode
		case value.Bool:
			b, _ := e.Value.AsBool()
			v := uint64(0)
			if b {
				v = 1
			}
			out = protowire.AppendTag(out, num, protowire.VarintType)
			out = protowire.AppendVarint(out, v)
		case value.Int:
			i, _ := e.Value.AsInt()
			out = protowire.AppendTag(out, num, protowire.VarintType)
			out = protowire.AppendVarint(out, uint64(i))
		case value.Double:
			f, _ := e.Value.AsDouble()
			out = protowire.AppendTag(out, num, protowire.Fixed64Type)
			out = protowire.AppendFixed64(out, math.Float64bits(f))
		case value.String:
			s, _ := e.Value.AsString()
			out = protowire.AppendTag(out, num, protowire.BytesType)
			out = protowire.AppendBytes(out, []byte(s))
		case value.Bytes:
			b, _ := e.Value.AsBytes()
			out = protowire.AppendTag(out, num, protowire.BytesType)
			out = protowire.AppendBytes(out, b)
		case value.Timestamp:
			ts, _ := e.Value.AsTimestamp()
			out = protowire.AppendTag(out, num, protowire.VarintType)
			out = protowire.AppendVarint(out, uint64(ts.UnixNano()))
		default:
			return nil, fmt.Errorf("codec: unsupported covering value tag %v for field %q", e.Value.Tag(), e.Field)
		}
	}
	return out, nil
}

// FieldKind tells DecodeCoveringPayload how to interpret the wire value
// recovered for a given field number, since the wire format alone can't
// distinguish an int64 from a timestamp (both VarintType) or a string
// from raw bytes (both BytesType).
type FieldKind uint8

const (
	KindBool FieldKind = iota
	KindInt
	KindDouble
	KindString
	KindBytes
	KindTimestamp
)

// DecodeCoveringPayload parses a payload produced by
// EncodeCoveringPayload back into field values, using fieldKinds (keyed
// by FieldNumber) to disambiguate wire types that collide on the wire.
// A field number present in the payload but absent from fieldKinds is
// skipped rather than erroring, since covering payloads may carry
// columns from a wider index than the query that decodes them needs.
func DecodeCoveringPayload(payload []byte, fieldKinds map[int32]FieldKind) (map[int32]value.Value, error) {
	out := make(map[int32]value.Value)
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, fmt.Errorf("codec: malformed covering payload tag: %w", protowire.ParseError(n))
		}
		payload = payload[n:]

		kind, known := fieldKinds[int32(num)]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return nil, fmt.Errorf("codec: malformed varint: %w", protowire.ParseError(n))
			}
			payload = payload[n:]
			if !known {
				continue
			}
			switch kind {
			case KindBool:
				out[int32(num)] = value.NewBool(v != 0)
			case KindTimestamp:
				out[int32(num)] = value.NewTimestamp(nanosToUTC(int64(v)))
			default:
				out[int32(num)] = value.NewInt(int64(v))
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(payload)
			if n < 0 {
				return nil, fmt.Errorf("codec: malformed fixed64: %w", protowire.ParseError(n))
			}
			payload = payload[n:]
			if !known {
				continue
			}
			out[int32(num)] = value.NewDouble(math.Float64frombits(v))
		case protowire.BytesType:
			b, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return nil, fmt.Errorf("codec: malformed length-delimited field: %w", protowire.ParseError(n))
			}
			payload = payload[n:]
			if !known {
				continue
			}
			if kind == KindString {
				out[int32(num)] = value.NewString(string(b))
			} else {
				out[int32(num)] = value.NewBytes(b)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return nil, fmt.Errorf("codec: unsupported wire type %v", typ)
			}
			payload = payload[n:]
		}
	}
	return out, nil
}
