// Package codec implements the tuple codec and covering-reconstruction
// wire format of spec §6: a stable field-number assignment derived from
// a DJB2 hash of the field name, and a protocol-buffer-style wire
// encoding (varint tags, length-delimited strings/bytes, fixed-64
// doubles; fixed-32 fields are skipped on decode and never written) used
// to decode an index-only scan's index
// entry directly back into a full record without a record fetch.
//
// Grounded on the teacher's own codec package shape
// (datalog/codec/l85.go: one alphabet/table file, its own error
// sentinel, an encode/decode pair plus a *_verify_test.go round-trip
// test) rather than on any single teacher algorithm — the teacher has
// no protobuf-style codec of its own, so this file's wire format is
// built directly against google.golang.org/protobuf/encoding/protowire
// per SPEC_FULL.md's domain-stack wiring.
package codec

// reservedFieldNumberLow/High mark the reserved range [19000,19999]
// spec §6 requires field numbers to skip.
const (
	reservedFieldNumberLow  = 19000
	reservedFieldNumberHigh = 19999
	maxFieldNumber          = 1<<29 - 1
)

// FieldNumber computes the stable protobuf-style field number for a
// field name: hash = 5381; hash = hash*33 + char (DJB2), folded into
// [1, 2^29-1], shifted by 1000 if it lands in the reserved range.
func FieldNumber(fieldName string) int32 {
	var hash uint32 = 5381
	for i := 0; i < len(fieldName); i++ {
		hash = hash*33 + uint32(fieldName[i])
	}

	n := int32(hash % maxFieldNumber)
	if n < 1 {
		n = 1
	}
	if n >= reservedFieldNumberLow && n <= reservedFieldNumberHigh {
		n += 1000
	}
	return n
}
