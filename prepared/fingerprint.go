// Package prepared implements prepared-plan reuse (spec §4.9):
// QueryFingerprint/QueryFingerprintBuilder strip a query down to its
// structural shape so repeated queries differing only in literal
// parameter values hit the same cache entry, PreparedPlan pairs a
// fingerprint with a reusable plan template and its parameter bindings,
// and PlanCache is the LRU+TTL store keyed by fingerprint.
//
// Grounded on datalog/planner/cache.go's PlanCache (mutex-protected map,
// hits/misses atomics, TTL-on-read, evictExpired/evictOldest), adapted
// from hashing a full query+options string to hashing a
// literal-stripped structural fingerprint so cache keys are shared
// across differently-parameterized instances of the same query shape.
package prepared

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/predicate"
)

// QueryFingerprint identifies a query's structural shape independent of
// literal values (spec §3): `{typeName, conditionStructure,
// sortStructure, hasLimit, hasOffset}`. Two queries differing only in
// comparison literals produce an equal fingerprint.
type QueryFingerprint struct {
	TypeName           string
	ConditionStructure string
	SortStructure      string
	HasLimit           bool
	HasOffset          bool
	hash               uint64
}

// Hash returns the fingerprint's cache key: a 64-bit hash over all of
// QueryFingerprint's fields, computed once by Build.
func (f QueryFingerprint) Hash() uint64 { return f.hash }

// Equal reports whether f and o describe the same query shape.
func (f QueryFingerprint) Equal(o QueryFingerprint) bool {
	return f.hash == o.hash &&
		f.TypeName == o.TypeName &&
		f.ConditionStructure == o.ConditionStructure &&
		f.SortStructure == o.SortStructure &&
		f.HasLimit == o.HasLimit &&
		f.HasOffset == o.HasOffset
}

// QueryFingerprintBuilder builds QueryFingerprints from plan.Query
// values, stripping literal values from comparisons and preserving only
// (fieldName, operator) tuples in tree shape (spec §3).
type QueryFingerprintBuilder struct{}

// Build computes q's fingerprint.
func (QueryFingerprintBuilder) Build(q plan.Query) QueryFingerprint {
	var conditionShape strings.Builder
	writeConditionShape(&conditionShape, q.Predicate)

	var sortShape strings.Builder
	for i, s := range q.SortBy {
		if i > 0 {
			sortShape.WriteByte(',')
		}
		fmt.Fprintf(&sortShape, "%s:%v", s.Field, s.Descending)
	}

	f := QueryFingerprint{
		TypeName:           q.TypeName,
		ConditionStructure: conditionShape.String(),
		SortStructure:      sortShape.String(),
		HasLimit:           q.Limit != nil,
		HasOffset:          q.Offset != nil,
	}

	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%s|%v|%v", f.TypeName, f.ConditionStructure, f.SortStructure, f.HasLimit, f.HasOffset)
	f.hash = h.Sum64()
	return f
}

// writeConditionShape recursively serializes p's tree shape, writing
// each comparison's (field, operator) pair but never its literal value.
func writeConditionShape(sb *strings.Builder, p predicate.Predicate) {
	switch p.Kind() {
	case predicate.KindTrue:
		sb.WriteString("T")
	case predicate.KindFalse:
		sb.WriteString("F")
	case predicate.KindCmp:
		c := p.Comparison()
		fmt.Fprintf(sb, "cmp(%s,%s)", c.Field, c.Op)
	case predicate.KindNot:
		sb.WriteString("not(")
		for _, child := range p.Children() {
			writeConditionShape(sb, child)
		}
		sb.WriteString(")")
	case predicate.KindAnd:
		writeConjunctionShape(sb, "and", p.Children())
	case predicate.KindOr:
		writeConjunctionShape(sb, "or", p.Children())
	}
}

func writeConjunctionShape(sb *strings.Builder, op string, children []predicate.Predicate) {
	fmt.Fprintf(sb, "%s(", op)
	for i, c := range children {
		if i > 0 {
			sb.WriteString(",")
		}
		writeConditionShape(sb, c)
	}
	sb.WriteString(")")
}

// ParameterBinding names a placeholder's slot in a PreparedPlan's
// template: the literal value stripped by the fingerprint builder is
// restored at execution time by position (spec §4.9).
type ParameterBinding struct {
	Name         string
	FieldName    string
	ExpectedType string
	Position     int
}

// PreparedPlan pairs a fingerprint with a reusable plan template and the
// parameter bindings needed to re-hydrate literal values into it before
// execution (spec §3).
type PreparedPlan struct {
	ID           string
	Fingerprint  QueryFingerprint
	PlanTemplate *plan.Plan
	Bindings     []ParameterBinding
	CreatedAt    int64 // unix nanos, stamped by the caller; PlanCache keeps its own entry timestamps for TTL and does not read this field
}

// usedIndexNames returns the set of index names plan.Plan references,
// used by PlanCache's validator to detect a dropped index.
func usedIndexNames(p *plan.Plan) map[string]bool {
	names := make(map[string]bool, len(p.UsedIndexes))
	for _, n := range p.UsedIndexes {
		names[n] = true
	}
	return names
}
