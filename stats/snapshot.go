package stats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/janusql/planner/histogram"
	"github.com/janusql/planner/value"
)

func nanosToTime(ns int64) time.Time { return time.Unix(0, ns).UTC() }

// EncodeHistogramSnapshot serializes h into a zstd-compressed byte
// blob (SPEC_FULL.md's domain-stack wiring of klauspost/compress,
// exercised directly rather than only transitively via badger). Nothing
// in this package writes the blob anywhere; kv.Store has no write path.
//
// Layout (pre-compression): totalCount, nullCount, distinctCount
// (int64 each), bucketCount (uint32), then per bucket: lower and upper
// bound, each a one-byte value tag followed by the value (int64 for
// ints, IEEE-754 bits for doubles, unix nanos for timestamps, uint32
// length plus raw bytes for strings and bytes, one byte for bools,
// nothing for null), then count and distinctCount (int64 each).
// Histogram.Timestamp and the most-common-values table are not stored.
func EncodeHistogramSnapshot(h *histogram.Histogram) ([]byte, error) {
	var buf bytes.Buffer
	writeInt64(&buf, h.TotalCount)
	writeInt64(&buf, h.NullCount)
	writeInt64(&buf, h.DistinctCount)
	writeUint32(&buf, uint32(len(h.Buckets)))

	for _, b := range h.Buckets {
		writeValue(&buf, b.LowerBound)
		writeValue(&buf, b.UpperBound)
		writeInt64(&buf, b.Count)
		writeInt64(&buf, b.DistinctCount)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("stats: zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeHistogramSnapshot is the inverse of EncodeHistogramSnapshot.
func DecodeHistogramSnapshot(blob []byte) (*histogram.Histogram, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("stats: zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("stats: zstd decode: %w", err)
	}

	r := bytes.NewReader(raw)
	h := &histogram.Histogram{}
	h.TotalCount = readInt64(r)
	h.NullCount = readInt64(r)
	h.DistinctCount = readInt64(r)
	count := readUint32(r)

	h.Buckets = make([]histogram.Bucket, 0, count)
	for i := uint32(0); i < count; i++ {
		lower := readValue(r)
		upper := readValue(r)
		c := readInt64(r)
		dc := readInt64(r)
		h.Buckets = append(h.Buckets, histogram.Bucket{
			LowerBound: lower, UpperBound: upper, Count: c, DistinctCount: dc,
		})
	}
	return h, nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeValue(buf *bytes.Buffer, v value.Value) {
	buf.WriteByte(byte(v.Tag()))
	switch v.Tag() {
	case value.Int:
		i, _ := v.AsInt()
		writeInt64(buf, i)
	case value.Double:
		f, _ := v.AsDouble()
		writeInt64(buf, int64(math.Float64bits(f)))
	case value.String:
		s, _ := v.AsString()
		writeUint32(buf, uint32(len(s)))
		buf.WriteString(s)
	case value.Timestamp:
		ts, _ := v.AsTimestamp()
		writeInt64(buf, ts.UnixNano())
	case value.Bytes:
		b, _ := v.AsBytes()
		writeUint32(buf, uint32(len(b)))
		buf.Write(b)
	case value.Bool:
		bv, _ := v.AsBool()
		if bv {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
}

func readInt64(r *bytes.Reader) int64 {
	var tmp [8]byte
	r.Read(tmp[:])
	return int64(binary.BigEndian.Uint64(tmp[:]))
}

func readUint32(r *bytes.Reader) uint32 {
	var tmp [4]byte
	r.Read(tmp[:])
	return binary.BigEndian.Uint32(tmp[:])
}

func readValue(r *bytes.Reader) value.Value {
	tagByte, _ := r.ReadByte()
	switch value.Tag(tagByte) {
	case value.Int:
		return value.NewInt(readInt64(r))
	case value.Double:
		return value.NewDouble(math.Float64frombits(uint64(readInt64(r))))
	case value.String:
		n := readUint32(r)
		b := make([]byte, n)
		r.Read(b)
		return value.NewString(string(b))
	case value.Timestamp:
		return value.NewTimestamp(nanosToTime(readInt64(r)))
	case value.Bytes:
		n := readUint32(r)
		b := make([]byte, n)
		r.Read(b)
		return value.NewBytes(b)
	case value.Bool:
		bv, _ := r.ReadByte()
		return value.NewBool(bv == 1)
	default:
		return value.NewNull()
	}
}
