package index

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

// highSentinel is appended to a prefix-pattern's lower bound to produce
// an exclusive upper bound one past every string beginning with that
// prefix, mirroring kv.IncrementKey's role at the byte-key level but
// applied at the Value level before key encoding.
const highSentinel = "\xff"

// unionThreshold caps how many IN values the scalar strategy expands
// into a union of seeks (spec §8 scenario F); above it, an IN condition
// is planned as a single [min,max] range scan with the membership test
// left as a residual post-filter instead.
const unionThreshold = 20

// ScalarStrategy implements the B-tree scalar index strategy of spec
// §4.5: walk an index's keyPaths in declared order, extending the scan
// bounds for each field that has a matching condition, stopping at the
// first field with no condition, a range, an IN, or a prefix pattern
// (each of the latter three terminates further prefix matching).
type ScalarStrategy struct{}

type fieldEquality struct {
	field string
	value value.Value
}

func (ScalarStrategy) MatchConditions(idx IndexDescriptor, conditions []*condition.FieldCondition, provider stats.Provider, typeName string, sortRequirements []SortRequirement) MatchResult {
	var satisfied []string
	var partial []string
	var bounds predicate.Bounds
	selectivity := 1.0
	matchedKeys := 0
	var equalities []fieldEquality

keyLoop:
	for _, field := range idx.KeyPaths {
		c := findScalarCondition(conditions, field)
		if c == nil {
			break keyLoop
		}

		switch {
		case c.Family == condition.FamilyScalar && c.ScalarType == condition.ScalarEQ:
			v := c.Values[0]
			bounds = predicate.MergeBounds(bounds, eqBounds(v))
			selectivity *= provider.EqualitySelectivity(typeName, field, v)
			satisfied = append(satisfied, c.Identifier())
			equalities = append(equalities, fieldEquality{field: field, value: v})
			matchedKeys++

		case c.Family == condition.FamilyScalar && c.ScalarType == condition.ScalarIn:
			lo, hi := minMaxValues(c.Values)
			bounds = predicate.MergeBounds(bounds, predicate.Bounds{Lower: &lo, LowerInclusive: true, Upper: &hi, UpperInclusive: true})
			eqSel := provider.EqualitySelectivity(typeName, field, c.Values[0])
			selectivity *= minFloat(1, eqSel*float64(len(c.Values)))
			matchedKeys++
			if len(c.Values) <= unionThreshold {
				satisfied = append(satisfied, c.Identifier())
			} else {
				// over unionThreshold: range-scan the [min,max] span and
				// leave membership as a residual post-filter (spec §8
				// scenario F).
				partial = append(partial, c.Identifier())
			}
			break keyLoop

		case c.Family == condition.FamilyScalar && isRangeScalarType(c.ScalarType):
			b := c.ToBounds()
			if b == nil {
				break keyLoop
			}
			bounds = predicate.MergeBounds(bounds, *b)
			selectivity *= rangeSelectivityFor(provider, typeName, field, b)
			satisfied = append(satisfied, c.Identifier())
			matchedKeys++
			break keyLoop // range terminates the prefix

		case c.Family == condition.FamilyStringPattern && c.PatternType == condition.PatternPrefix:
			lo := value.NewString(c.Pattern)
			hi := value.NewString(c.Pattern + highSentinel)
			bounds = predicate.MergeBounds(bounds, predicate.Bounds{Lower: &lo, LowerInclusive: true, Upper: &hi, UpperInclusive: false})
			selectivity *= 0.1
			satisfied = append(satisfied, c.Identifier())
			matchedKeys++
			break keyLoop

		default:
			break keyLoop
		}
	}

	if matchedKeys == 0 {
		return MatchResult{}
	}

	satisfiesOrdering := indexPrefixSatisfiesOrdering(idx, sortRequirements)
	estimatedEntries := int64(selectivity * float64(provider.IndexEntries(idx.Name)))

	return MatchResult{
		SatisfiedConditions: satisfied,
		PartialConditions:   partial,
		SatisfiesOrdering:   satisfiesOrdering,
		ScanBounds:          &bounds,
		Selectivity:         selectivity,
		EstimatedEntries:    estimatedEntries,
	}
}

func (ScalarStrategy) CreateOperator(idx IndexDescriptor, match MatchResult, conditions []*condition.FieldCondition) *operator.Operator {
	equalities, inField, inValues, allEquality, fullKey := reconstructMatch(idx, conditions, match)

	switch {
	case fullKey && allEquality && inField == "":
		return &operator.Operator{
			Kind:             operator.KindIndexSeek,
			IndexName:        idx.Name,
			SatisfiedIDs:     match.SatisfiedConditions,
			EstimatedEntries: match.EstimatedEntries,
			Bounds:           match.ScanBounds,
		}

	case inField != "":
		children := make([]*operator.Operator, 0, len(inValues))
		for _, v := range inValues {
			seekBounds := predicate.Bounds{Lower: &v, LowerInclusive: true, Upper: &v, UpperInclusive: true}
			for _, eq := range equalities {
				seekBounds = predicate.MergeBounds(seekBounds, eqBounds(eq.value))
			}
			children = append(children, &operator.Operator{
				Kind:         operator.KindIndexSeek,
				IndexName:    idx.Name,
				SatisfiedIDs: match.SatisfiedConditions,
				Bounds:       &seekBounds,
			})
		}
		return &operator.Operator{
			Kind:             operator.KindUnion,
			Children:         children,
			Deduplicate:      false,
			SatisfiedIDs:     match.SatisfiedConditions,
			EstimatedEntries: match.EstimatedEntries,
		}

	default:
		return &operator.Operator{
			Kind:             operator.KindIndexScan,
			IndexName:        idx.Name,
			Bounds:           match.ScanBounds,
			SatisfiedIDs:     match.SatisfiedConditions,
			EstimatedEntries: match.EstimatedEntries,
		}
	}
}

func (ScalarStrategy) EstimateCost(idx IndexDescriptor, match MatchResult) CostEstimate {
	return CostEstimate{
		IndexReads:    match.EstimatedEntries,
		RecordFetches: match.EstimatedEntries,
	}
}

// reconstructMatch re-derives the equality/IN classification CreateOperator
// needs from the already-computed MatchResult and the original condition
// list, avoiding a second mutable-state threading between MatchConditions
// and CreateOperator (strategies are stateless per spec §4.5).
func reconstructMatch(idx IndexDescriptor, conditions []*condition.FieldCondition, match MatchResult) (equalities []fieldEquality, inField string, inValues []value.Value, allEquality bool, fullKey bool) {
	satisfiedSet := make(map[string]bool, len(match.SatisfiedConditions))
	for _, id := range match.SatisfiedConditions {
		satisfiedSet[id] = true
	}

	allEquality = true
	matched := 0
	for _, field := range idx.KeyPaths {
		c := findScalarCondition(conditions, field)
		if c == nil || !satisfiedSet[c.Identifier()] {
			break
		}
		matched++
		switch {
		case c.Family == condition.FamilyScalar && c.ScalarType == condition.ScalarEQ:
			equalities = append(equalities, fieldEquality{field: field, value: c.Values[0]})
		case c.Family == condition.FamilyScalar && c.ScalarType == condition.ScalarIn:
			inField = field
			inValues = c.Values
			allEquality = false
		default:
			allEquality = false
		}
	}
	fullKey = matched == len(idx.KeyPaths)
	return equalities, inField, inValues, allEquality, fullKey
}

func findScalarCondition(conditions []*condition.FieldCondition, field string) *condition.FieldCondition {
	for _, c := range conditions {
		if c.Field == field {
			return c
		}
	}
	return nil
}

func eqBounds(v value.Value) predicate.Bounds {
	return predicate.Bounds{Lower: &v, LowerInclusive: true, Upper: &v, UpperInclusive: true}
}

func isRangeScalarType(t condition.ScalarType) bool {
	switch t {
	case condition.ScalarLT, condition.ScalarLE, condition.ScalarGT, condition.ScalarGE, condition.ScalarBetween:
		return true
	default:
		return false
	}
}

func rangeSelectivityFor(provider stats.Provider, typeName, field string, b *predicate.Bounds) float64 {
	return provider.RangeSelectivity(typeName, field, b.Lower, b.Upper, b.LowerInclusive, b.UpperInclusive)
}

func minMaxValues(vs []value.Value) (value.Value, value.Value) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if value.Compare(v, lo) < 0 {
			lo = v
		}
		if value.Compare(v, hi) > 0 {
			hi = v
		}
	}
	return lo, hi
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// indexPrefixSatisfiesOrdering reports whether idx's key-path order
// (ascending) matches the requested sortRequirements as a prefix,
// allowing a uniform reverse flag if every requirement is descending
// (spec §4.6's "computed by comparing the leading index key paths and
// direction to sortRequirements").
func indexPrefixSatisfiesOrdering(idx IndexDescriptor, sortRequirements []SortRequirement) bool {
	if len(sortRequirements) == 0 {
		return true
	}
	if len(sortRequirements) > len(idx.KeyPaths) {
		return false
	}
	wantDescending := sortRequirements[0].Descending
	for i, req := range sortRequirements {
		if idx.KeyPaths[i] != req.Field {
			return false
		}
		if req.Descending != wantDescending {
			return false
		}
	}
	return true
}
