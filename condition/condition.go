// Package condition implements FieldCondition (spec §3): the canonical,
// per-field constraint a predicate comparison is translated into before
// index strategies match against it.
//
// This generalizes janus-datalog's tagged-variant-by-type idiom seen in
// datalog/planner/types.go's PredicatePlanType/PatternPlan (matching on
// a type tag rather than dispatching through an interface hierarchy) to
// the constraint families spec §3 names: Scalar, TextSearch, Spatial,
// Vector, StringPattern.
package condition

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/value"
)

// Family identifies which FieldCondition variant is populated.
type Family uint8

const (
	FamilyScalar Family = iota
	FamilyTextSearch
	FamilySpatial
	FamilyVector
	FamilyStringPattern
)

// ScalarType enumerates the scalar constraint shapes of spec §3.
type ScalarType uint8

const (
	ScalarEQ ScalarType = iota
	ScalarNE
	ScalarLT
	ScalarLE
	ScalarGT
	ScalarGE
	ScalarBetween
	ScalarIn
	ScalarNotIn
	ScalarIsNull
	ScalarIsNotNull
)

// MatchMode controls how TextSearch terms combine.
type MatchMode uint8

const (
	MatchAny MatchMode = iota
	MatchAll
	MatchPhrase
)

// SpatialKind distinguishes the spatial constraint shapes of spec §3.
type SpatialKind uint8

const (
	SpatialWithinDistance SpatialKind = iota
	SpatialWithinBounds
	SpatialWithinPolygon
)

// VectorMetric is the similarity metric for a Vector condition.
type VectorMetric uint8

const (
	MetricCosine VectorMetric = iota
	MetricEuclidean
	MetricDotProduct
)

// PatternType enumerates StringPattern constraint shapes.
type PatternType uint8

const (
	PatternContains PatternType = iota
	PatternPrefix
	PatternSuffix
	PatternLike
	PatternRegex
)

// GeoPoint is a simple (lat, lon) pair used by spatial conditions.
type GeoPoint struct{ Lat, Lon float64 }

// FieldCondition is the canonical per-field constraint. Exactly one of
// the Scalar/TextSearch/Spatial/Vector/StringPattern payloads is
// meaningful, selected by Family.
type FieldCondition struct {
	Field  string
	Family Family

	// Scalar payload
	ScalarType ScalarType
	Values     []value.Value
	Bounds     *predicate.Bounds

	// TextSearch payload
	Terms     []string
	MatchMode MatchMode
	MinScore  *float64

	// Spatial payload
	SpatialKind   SpatialKind
	Center        GeoPoint
	RadiusMeters  float64
	MinLat, MinLon, MaxLat, MaxLon float64
	Polygon       []GeoPoint

	// Vector payload
	QueryVector []float64
	K           int
	Metric      VectorMetric
	EFSearch    int

	// StringPattern payload
	PatternType   PatternType
	Pattern       string
	CaseSensitive bool

	// Source carries the originating predicate for post-filter fallback.
	Source predicate.FieldComparison
	id     string
}

// Identifier returns this condition's stable identifier (spec §3
// invariant: identical source comparisons produce identical
// identifiers; distinct comparisons on the same field, e.g. age>20 and
// age<50, produce distinct identifiers). Computed lazily and cached.
func (c *FieldCondition) Identifier() string {
	if c.id != "" {
		return c.id
	}
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%v", c.Field, c.Source.Op, c.Source.String())
	c.id = fmt.Sprintf("%s:%016x", c.Field, h.Sum64())
	return c.id
}

// SatisfiedBy reports whether the condition holds for a record's field
// value, used for post-filter evaluation and covering-scan verification.
func (c *FieldCondition) SatisfiedBy(get func(field string) (value.Value, bool)) bool {
	return predicate.Evaluate(predicate.Cmp(c.Source), get)
}

// ToBounds returns the scalar Bounds this condition implies (a point
// interval for an equality), or nil for scalar types with no interval
// form (ne, in, isNull, isNotNull) and for non-scalar families.
func (c *FieldCondition) ToBounds() *predicate.Bounds {
	if c.Family != FamilyScalar {
		return nil
	}
	if c.Bounds != nil {
		return c.Bounds
	}
	b, ok := predicate.BoundsFromComparison(c.Source)
	if !ok {
		return nil
	}
	return &b
}

// FromComparison wraps a single FieldComparison in the smallest matching
// FieldCondition variant (spec §4.2). Scalar operators map to the scalar
// family and contains/hasPrefix/hasSuffix map to the string-pattern
// family; it is the only constructor the analyzer calls, so no text,
// spatial or vector conditions are built from a query predicate.
func FromComparison(c predicate.FieldComparison) *FieldCondition {
	fc := &FieldCondition{Field: c.Field, Family: FamilyScalar, Source: c}

	switch c.Op {
	case predicate.OpEQ:
		fc.ScalarType = ScalarEQ
		fc.Values = []value.Value{c.Value}
	case predicate.OpNE:
		fc.ScalarType = ScalarNE
		fc.Values = []value.Value{c.Value}
	case predicate.OpLT:
		fc.ScalarType = ScalarLT
		fc.Values = []value.Value{c.Value}
	case predicate.OpLE:
		fc.ScalarType = ScalarLE
		fc.Values = []value.Value{c.Value}
	case predicate.OpGT:
		fc.ScalarType = ScalarGT
		fc.Values = []value.Value{c.Value}
	case predicate.OpGE:
		fc.ScalarType = ScalarGE
		fc.Values = []value.Value{c.Value}
	case predicate.OpIn:
		fc.ScalarType = ScalarIn
		fc.Values = c.Values
	case predicate.OpIsNull:
		fc.ScalarType = ScalarIsNull
	case predicate.OpIsNotNull:
		fc.ScalarType = ScalarIsNotNull
	case predicate.OpContains:
		fc.Family = FamilyStringPattern
		fc.PatternType = PatternContains
		fc.Pattern, _ = c.Value.AsString()
		fc.CaseSensitive = true
	case predicate.OpHasPrefix:
		fc.Family = FamilyStringPattern
		fc.PatternType = PatternPrefix
		fc.Pattern, _ = c.Value.AsString()
		fc.CaseSensitive = true
	case predicate.OpHasSuffix:
		fc.Family = FamilyStringPattern
		fc.PatternType = PatternSuffix
		fc.Pattern, _ = c.Value.AsString()
		fc.CaseSensitive = true
	default:
		fc.ScalarType = ScalarEQ
		fc.Values = []value.Value{c.Value}
	}

	return fc
}

// NewBetween builds a Scalar Between condition directly from Bounds,
// used when the rewriter has already merged multiple comparisons on the
// same field into one interval (spec: "age>20 AND age<50 yields two
// distinct identifiers" still holds because the analyzer keeps each
// contributing comparison's own FieldCondition; NewBetween is used only
// when a strategy needs a single combined interval view for bound
// computation, not for identifier bookkeeping).
func NewBetween(field string, b predicate.Bounds, src predicate.FieldComparison) *FieldCondition {
	return &FieldCondition{
		Field: field, Family: FamilyScalar, ScalarType: ScalarBetween,
		Bounds: &b, Source: src,
	}
}
