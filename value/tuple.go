package value

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a stable, non-cryptographic hash of v, used by the
// histogram package's HyperLogLog estimator.
// Matches the teacher's preference (datalog/storage/types.go NewAttribute)
// for hashing over a fixed-size digest, but with xxhash rather than
// sha256 since these hashes are never a security boundary.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	d.Write([]byte{byte(v.tag)})
	switch v.tag {
	case Bool:
		if v.b {
			d.Write([]byte{1})
		} else {
			d.Write([]byte{0})
		}
	case Int:
		d.Write(int64Bytes(v.i))
	case Double:
		d.Write(int64Bytes(int64(v.f * 1e9)))
	case String:
		d.Write([]byte(v.s))
	case Timestamp:
		d.Write(int64Bytes(v.ts.UnixNano()))
	case Bytes:
		d.Write(v.buf)
	}
	return d.Sum64()
}

func int64Bytes(i int64) []byte {
	return []byte{
		byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24),
		byte(i >> 32), byte(i >> 40), byte(i >> 48), byte(i >> 56),
	}
}

// ToTupleElement converts a Value into an ordered, lexicographically
// comparable tuple-element form as consumed by the storage abstraction's
// tuple codec (spec §6). Numeric values are encoded in a sign-flipped,
// order-preserving big-endian layout; strings and bytes pass through
// unchanged, with no length prefix, so shorter prefixes sort before
// longer strings that begin with them once the codec adds its escaping
// and terminator byte.
func (v Value) ToTupleElement() []byte {
	switch v.tag {
	case Null:
		return nil
	case Bool:
		if v.b {
			return []byte{1}
		}
		return []byte{0}
	case Int:
		return encodeOrderedInt(v.i)
	case Double:
		return encodeOrderedFloat(v.f)
	case String:
		return []byte(v.s)
	case Timestamp:
		return encodeOrderedInt(v.ts.UnixNano())
	case Bytes:
		return v.buf
	default:
		return nil
	}
}

// encodeOrderedInt produces an 8-byte big-endian encoding where byte
// comparison matches numeric comparison, including negative values (flip
// the sign bit so two's-complement ordering becomes unsigned ordering).
func encodeOrderedInt(i int64) []byte {
	u := uint64(i) ^ (1 << 63)
	return []byte{
		byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32),
		byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u),
	}
}

// encodeOrderedFloat produces an order-preserving encoding of an IEEE754
// double: flip all bits for negatives, flip only the sign bit for
// non-negatives, so the resulting bytes sort the same as the floats.
func encodeOrderedFloat(f float64) []byte {
	bits := float64Bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return []byte{
		byte(bits >> 56), byte(bits >> 48), byte(bits >> 40), byte(bits >> 32),
		byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits),
	}
}

func float64Bits(f float64) uint64 {
	return math.Float64bits(f)
}
