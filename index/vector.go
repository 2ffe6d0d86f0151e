package index

import (
	"math"

	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/stats"
)

// vectorIndexCostPerCandidate is the per-candidate-comparison cost
// constant `c` in spec §4.5's `log2(N) x efSearch x c + fetch(k)`.
const vectorIndexCostPerCandidate = 1.0

// VectorStrategy matches a vectorSimilarity condition on the indexed
// field (spec §4.5). It always yields exactly k results and always
// satisfies ordering, since approximate-nearest-neighbor search returns
// results pre-sorted by similarity.
type VectorStrategy struct{}

func (VectorStrategy) MatchConditions(idx IndexDescriptor, conditions []*condition.FieldCondition, provider stats.Provider, typeName string, _ []SortRequirement) MatchResult {
	if len(idx.KeyPaths) == 0 {
		return MatchResult{}
	}
	field := idx.KeyPaths[0]

	for _, c := range conditions {
		if c.Field == field && c.Family == condition.FamilyVector {
			entries := int64(c.K)
			return MatchResult{
				SatisfiedConditions: []string{c.Identifier()},
				SatisfiesOrdering:   true,
				EstimatedEntries:    entries,
				Selectivity:         float64(c.K) / maxFloat(1, float64(provider.RowCount(typeName))),
			}
		}
	}
	return MatchResult{}
}

func (VectorStrategy) CreateOperator(idx IndexDescriptor, match MatchResult, conditions []*condition.FieldCondition) *operator.Operator {
	c := conditionByID(conditions, match.SatisfiedConditions)
	op := &operator.Operator{
		Kind:             operator.KindVectorSearch,
		IndexName:        idx.Name,
		SatisfiedIDs:     match.SatisfiedConditions,
		EstimatedEntries: match.EstimatedEntries,
	}
	if c != nil {
		limit := c.K
		op.Limit = &limit
	}
	return op
}

// EstimateCost approximates log2(N) x efSearch x c + fetch(k). Without a
// richer index-size signal at this call site, N and efSearch both fall
// back to the requested k (EstimatedEntries); a caller with fresher
// provider access may recompute a tighter bound.
func (VectorStrategy) EstimateCost(idx IndexDescriptor, match MatchResult) CostEstimate {
	k := float64(match.EstimatedEntries)
	if k < 1 {
		k = 1
	}
	additional := math.Log2(k+1) * k * vectorIndexCostPerCandidate
	return CostEstimate{
		IndexReads:     match.EstimatedEntries,
		RecordFetches:  match.EstimatedEntries,
		AdditionalCost: additional,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
