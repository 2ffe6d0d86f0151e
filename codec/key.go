package codec

import (
	"bytes"

	"github.com/janusql/planner/value"
)

// tagByteNull..tagByteBytes order the value.Tag space for key encoding;
// kept distinct from value.Tag's own iota values so a storage-format
// change in value doesn't silently reorder keys already written to disk.
const (
	tagByteNull byte = iota
	tagByteBool
	tagByteInt
	tagByteDouble
	tagByteString
	tagByteTimestamp
	tagByteBytes
)

func tagByteFor(t value.Tag) byte {
	switch t {
	case value.Null:
		return tagByteNull
	case value.Bool:
		return tagByteBool
	case value.Int:
		return tagByteInt
	case value.Double:
		return tagByteDouble
	case value.String:
		return tagByteString
	case value.Timestamp:
		return tagByteTimestamp
	case value.Bytes:
		return tagByteBytes
	default:
		return tagByteNull
	}
}

// EncodeKeyElement encodes one tuple element as a tag byte followed by
// v.ToTupleElement(), terminating variable-length elements (string,
// bytes) with 0x00 after escaping any embedded 0x00 as 0x00 0xFF, so a
// multi-element key built by concatenating elements stays prefix-free:
// no encoded element is a byte-prefix of a different value's encoding.
// This mirrors the escape-and-terminate convention behind
// datalog/storage/key_encoder_binary.go's ordered composite keys.
func EncodeKeyElement(v value.Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagByteFor(v.Tag()))

	raw := v.ToTupleElement()
	switch v.Tag() {
	case value.String, value.Bytes:
		for _, b := range raw {
			if b == 0x00 {
				buf.WriteByte(0x00)
				buf.WriteByte(0xFF)
			} else {
				buf.WriteByte(b)
			}
		}
		buf.WriteByte(0x00)
	default:
		buf.Write(raw)
	}
	return buf.Bytes()
}

// EncodeKey concatenates the ordered encoding of each element in elems,
// producing a single byte-comparable composite key (spec §6).
func EncodeKey(elems []value.Value) []byte {
	var buf bytes.Buffer
	for _, e := range elems {
		buf.Write(EncodeKeyElement(e))
	}
	return buf.Bytes()
}

// DecodeKeyElement reads one tag-prefixed element from the front of b,
// returning the decoded Value and the remaining bytes.
func DecodeKeyElement(b []byte) (value.Value, []byte, bool) {
	if len(b) == 0 {
		return value.Value{}, nil, false
	}
	tag := b[0]
	rest := b[1:]

	switch tag {
	case tagByteNull:
		return value.NewNull(), rest, true
	case tagByteBool:
		if len(rest) < 1 {
			return value.Value{}, nil, false
		}
		return value.NewBool(rest[0] == 1), rest[1:], true
	case tagByteInt:
		if len(rest) < 8 {
			return value.Value{}, nil, false
		}
		return value.NewInt(decodeOrderedInt(rest[:8])), rest[8:], true
	case tagByteDouble:
		if len(rest) < 8 {
			return value.Value{}, nil, false
		}
		return value.NewDouble(decodeOrderedFloat(rest[:8])), rest[8:], true
	case tagByteTimestamp:
		if len(rest) < 8 {
			return value.Value{}, nil, false
		}
		ns := decodeOrderedInt(rest[:8])
		return value.NewTimestamp(nanosToUTC(ns)), rest[8:], true
	case tagByteString, tagByteBytes:
		payload, remainder, ok := unescapeUntilTerminator(rest)
		if !ok {
			return value.Value{}, nil, false
		}
		if tag == tagByteString {
			return value.NewString(string(payload)), remainder, true
		}
		return value.NewBytes(payload), remainder, true
	default:
		return value.Value{}, nil, false
	}
}

// unescapeUntilTerminator reverses EncodeKeyElement's 0x00-escaping,
// stopping at the first unescaped 0x00 terminator.
func unescapeUntilTerminator(b []byte) ([]byte, []byte, bool) {
	var out []byte
	i := 0
	for i < len(b) {
		if b[i] == 0x00 {
			if i+1 < len(b) && b[i+1] == 0xFF {
				out = append(out, 0x00)
				i += 2
				continue
			}
			return out, b[i+1:], true
		}
		out = append(out, b[i])
		i++
	}
	return nil, nil, false
}

func decodeOrderedInt(b []byte) int64 {
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return int64(u ^ (1 << 63))
}

func decodeOrderedFloat(b []byte) float64 {
	var bits uint64
	for _, c := range b {
		bits = bits<<8 | uint64(c)
	}
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return float64FromBits(bits)
}
